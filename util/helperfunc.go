package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Msg     string      `json:"msg"`
	Data    interface{} `json:"data"`
}

type APIErrorParams struct {
	Msg string
	Err error
}

type APISuccessParams struct {
	Msg  string
	Data interface{}
}

func errorResponse(params APIErrorParams) APIResponse {
	errMsg := ""
	if params.Err != nil {
		errMsg = params.Err.Error()
	}
	return APIResponse{
		Success: false,
		Error:   errMsg,
		Msg:     params.Msg,
		Data:    map[string]interface{}{},
	}
}

// CallErrorNotFound is for return API response not found
func CallErrorNotFound(c *gin.Context, params APIErrorParams) {
	c.JSON(http.StatusNotFound, errorResponse(params))
}

// CallUserError is for return error from user side
func CallUserError(c *gin.Context, params APIErrorParams) {
	c.JSON(http.StatusBadRequest, errorResponse(params))
}

// CallServerError is for return API response server error
func CallServerError(c *gin.Context, params APIErrorParams) {
	c.JSON(http.StatusInternalServerError, errorResponse(params))
}

// CallUserNotAuthorized is for return API response with status code 401 when
// the caller could not be authenticated
func CallUserNotAuthorized(c *gin.Context, params APIErrorParams) {
	c.JSON(http.StatusUnauthorized, errorResponse(params))
}

// CallUserForbidden is for return API response with status code 403 when the
// caller is authenticated but lacks the required rights
func CallUserForbidden(c *gin.Context, params APIErrorParams) {
	c.JSON(http.StatusForbidden, errorResponse(params))
}

// CallSuccessOK is for return API response with status code 200, you need to specify msg, and data as function parameter
func CallSuccessOK(c *gin.Context, params APISuccessParams) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Msg:     params.Msg,
		Data:    params.Data,
	})
}

// CallCreated is for return API response with status code 201 after a resource was created
func CallCreated(c *gin.Context, params APISuccessParams) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Msg:     params.Msg,
		Data:    params.Data,
	})
}

// CallNoContent responds with status code 204 and an empty body
func CallNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

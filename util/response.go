package util

import (
	libconstants "github.com/filswan/go-swan-lib/constants"
)

type BasicResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func CreateSuccessResponse(_data interface{}) BasicResponse {
	return BasicResponse{
		Status: libconstants.SWAN_API_STATUS_SUCCESS,
		Data:   _data,
		Code:   SuccessCode,
	}
}

func CreateErrorResponse(code int, errMsg ...string) BasicResponse {
	var msg string
	if len(errMsg) == 0 {
		msg = codeMsg[code]
	} else {
		msg = errMsg[0]
	}
	return BasicResponse{
		Status:  libconstants.SWAN_API_STATUS_FAIL,
		Code:    code,
		Message: msg,
	}
}

const (
	SuccessCode = 200
	JsonError   = 400

	SelectionError   = 7001
	JobInProgress    = 7002
	PriceError       = 7003
	JobStartError    = 7004
	NothingToRetry   = 7005
	EnvironmentError = 7006
	CredentialError  = 7007
)

var codeMsg = map[int]string{
	JsonError: "An error occurred while converting to json",

	SelectionError:   "The dataset or algorithm selection could not be resolved",
	JobInProgress:    "A compute job submission is already in progress",
	PriceError:       "An error occurred while initializing prices and fees",
	JobStartError:    "An error occurred while starting the compute job",
	NothingToRetry:   "There is no failed submission to retry",
	EnvironmentError: "An error occurred while fetching compute environments",
	CredentialError:  "An error occurred while clearing the credential cache",
}

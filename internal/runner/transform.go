package runner

import (
	"dexEngine/internal/model"
)

func buildRequestError(number uint64, req model.Request, err error) model.RequestError {
	return model.RequestError{
		Request: number,
		Op:      req.Op,
		Account: req.Account,
		Error:   err.Error(),
	}
}

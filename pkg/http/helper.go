package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	apperrors "medassist/pkg/errors"
)

// DecodeJSON reads a JSON request body into dst. Unknown fields and trailing
// data are rejected; an empty body is reported as invalid input.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperrors.InvalidInput("request body is required")
		case errors.As(err, &maxErr):
			return apperrors.InvalidInput("request body too large")
		default:
			return apperrors.InvalidInput("invalid JSON body: " + err.Error())
		}
	}
	if dec.More() {
		return apperrors.InvalidInput("request body must contain a single JSON object")
	}
	return nil
}

func ParamInt64(ps httprouter.Params, name string) (int64, error) {
	raw := ps.ByName(name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, apperrors.InvalidInput("invalid " + name + " parameter: " + raw)
	}
	return v, nil
}

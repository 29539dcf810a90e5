package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// readForm flattens the request body into field -> value. JSON bodies must be
// a flat object of strings; form bodies keep the first value of each field.
func readForm(c echo.Context) (map[string]string, error) {
	req := c.Request()
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		form := map[string]string{}
		if req.ContentLength == 0 {
			return form, nil
		}
		if err := json.NewDecoder(req.Body).Decode(&form); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		return form, nil
	}

	params, err := c.FormParams()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	form := make(map[string]string, len(params))
	for key, values := range params {
		if len(values) > 0 {
			form[key] = values[0]
		}
	}
	return form, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	httpservice "github.com/waveportal/waved/internal/interface/http"
)

// Submitting a wave blocks until the tx is mined.
const requestTimeout = 10 * time.Minute

type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string {
	return e.message
}

func post[T any](url, body string) (result T, err error) {
	req, err := http.NewRequest("POST", url, strings.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Add("Content-Type", "application/json")

	return do[T](req)
}

func get[T any](url string) (result T, err error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return
	}
	req.Header.Add("Content-Type", "application/json")

	return do[T](req)
}

func do[T any](req *http.Request) (result T, err error) {
	client := &http.Client{
		Timeout: requestTimeout,
	}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(buf))
		var errResp httpservice.ErrorResponse
		if e := json.Unmarshal(buf, &errResp); e == nil && len(errResp.Error) > 0 {
			msg = errResp.Error
		}
		err = &httpError{
			status:  resp.StatusCode,
			message: fmt.Sprintf("failed to %s %s: %s", strings.ToLower(req.Method), req.URL.Path, msg),
		}
		return
	}

	err = json.Unmarshal(buf, &result)
	return
}

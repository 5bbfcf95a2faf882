package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
)

type apiClient struct {
	http *resty.Client
}

func newClient(base string) *apiClient {
	c := resty.New().
		SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second)
	return &apiClient{http: c}
}

func (c *apiClient) get(path string) ([]byte, error) {
	return check(c.http.R().Get(path))
}

func (c *apiClient) postJSON(path string, payload any) ([]byte, error) {
	r := c.http.R()
	if payload != nil {
		r = r.SetHeader("Content-Type", "application/json").SetBody(payload)
	}
	return check(r.Post(path))
}

func (c *apiClient) patchJSON(path string, payload any) ([]byte, error) {
	return check(c.http.R().SetHeader("Content-Type", "application/json").SetBody(payload).Patch(path))
}

func (c *apiClient) delete(path string) ([]byte, error) {
	return check(c.http.R().Delete(path))
}

// upload sends a multipart request with the file under "file" and extra form fields.
func (c *apiClient) upload(method, path, file string, fields map[string]string) ([]byte, error) {
	r := c.http.R().SetFile("file", file).SetFormData(fields)
	return check(r.Execute(method, path))
}

func check(resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return resp.Body(), nil
}

// printJSON indents JSON bodies; anything else is written as is.
func printJSON(out io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

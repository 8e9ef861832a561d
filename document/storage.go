package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

var ErrStorageAPI = errors.New("storage api")

// ObjectStore is the file backend for agreement documents.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	Delete(ctx context.Context, key string) error
}

// StoreClient talks to the object storage gateway over HTTP.
type StoreClient struct {
	rc *resty.Client
}

// NewStoreClient builds a client for the storage gateway at baseURL.
func NewStoreClient(baseURL, apiKey string) *StoreClient {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", "Bearer "+apiKey)
	return &StoreClient{rc: rc}
}

type storageErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toStorageError(resp *resty.Response) error {
	var er storageErrorResponse
	if err := json.Unmarshal(resp.Body(), &er); err != nil {
		return errors.Join(ErrStorageAPI, fmt.Errorf("(HTTP Status: %d)- unable to parse json error response: %s", resp.StatusCode(), err))
	}
	return errors.Join(ErrStorageAPI, fmt.Errorf("(HTTP Status: %d)- %s: %s", resp.StatusCode(), er.Code, er.Message))
}

func (c *StoreClient) Put(ctx context.Context, key, contentType string, body []byte) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Put("/objects/" + key)
	if err != nil {
		return fmt.Errorf("document: put object: %w", err)
	}
	if resp.IsError() {
		return toStorageError(resp)
	}
	return nil
}

func (c *StoreClient) Delete(ctx context.Context, key string) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		Delete("/objects/" + key)
	if err != nil {
		return fmt.Errorf("document: delete object: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != 404 {
		return toStorageError(resp)
	}
	return nil
}

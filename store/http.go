package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/JoshUrdnb/Billed/bill"
)

// maxErrorBody bounds how much of an error response is kept for logging.
const maxErrorBody = 4 << 10

// HTTPClient talks to the bills JSON API with a bearer token.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPClient(baseURL, token string, client *http.Client) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

func (c *HTTPClient) List(ctx context.Context) ([]bill.Bill, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/bills", nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return bill.ParseList(body)
}

func (c *HTTPClient) Create(ctx context.Context, file bill.UploadedFile, b bill.Bill) (*CreatedBill, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for key, value := range formValues(b) {
		if err := mw.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", key, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, bill.FieldFile, file.BaseName()))
	header.Set("Content-Type", file.MediaType())
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("writing file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bills", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var created CreatedBill
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, &bill.ParseError{Field: "created bill", Reason: err.Error()}
	}
	if created.Key == "" || created.FileURL == "" {
		return nil, &bill.ParseError{Field: "created bill", Reason: "missing key or fileUrl"}
	}
	return &created, nil
}

func (c *HTTPClient) Update(ctx context.Context, b bill.Bill) (*bill.Bill, error) {
	payload, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/bills/"+url.PathEscape(b.ID), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	updated, err := bill.Parse(body)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling bills api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(detail, &apiErr) == nil && apiErr.Error != "" {
			detail = []byte(apiErr.Error)
		}
		return nil, &RemoteError{Status: resp.StatusCode, Detail: string(detail)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading bills api response: %w", err)
	}
	return body, nil
}

func formValues(b bill.Bill) map[string]string {
	return map[string]string{
		bill.FieldType:       string(b.Type),
		bill.FieldName:       b.Name,
		bill.FieldDate:       b.Date,
		bill.FieldAmount:     strconv.Itoa(b.Amount),
		bill.FieldVAT:        b.VAT,
		bill.FieldPct:        strconv.Itoa(b.Pct),
		bill.FieldCommentary: b.Commentary,
	}
}

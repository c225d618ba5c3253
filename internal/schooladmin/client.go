// Package schooladmin is a client for the school administration REST API
// (classes, sections, teachers and students).
package schooladmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kids-activity-service/internal/platform/logger"
)

const apiPrefix = "/api/school/admin"

// Client talks to the admin API with bearer credentials attached to every call.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logger.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListClasses returns the classes matching the filter, each with its student count.
func (c *Client) ListClasses(ctx context.Context, filter ClassFilter) ([]Class, error) {
	q := url.Values{}
	if filter.Grade != "" {
		q.Set("grade", filter.Grade)
	}
	if filter.Stream != "" {
		q.Set("stream", filter.Stream)
	}
	path := "/classes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Classes []Class `json:"classes"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Classes), nil
}

// GetClass fetches a single class with populated class teachers.
func (c *Client) GetClass(ctx context.Context, classID string) (Class, error) {
	var resp struct {
		Class Class `json:"class"`
	}
	if err := c.do(ctx, http.MethodGet, "/classes/"+url.PathEscape(classID), nil, &resp); err != nil {
		return Class{}, err
	}
	return resp.Class, nil
}

func (c *Client) ClassStats(ctx context.Context) (ClassStats, error) {
	var stats ClassStats
	if err := c.do(ctx, http.MethodGet, "/classes/stats", nil, &stats); err != nil {
		return ClassStats{}, err
	}
	return stats, nil
}

func (c *Client) ListTeachers(ctx context.Context) ([]Teacher, error) {
	var resp struct {
		Teachers []Teacher `json:"teachers"`
	}
	if err := c.do(ctx, http.MethodGet, "/teachers", nil, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Teachers), nil
}

func (c *Client) ListStudents(ctx context.Context) ([]Student, error) {
	var resp struct {
		Students []Student `json:"students"`
	}
	if err := c.do(ctx, http.MethodGet, "/students", nil, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Students), nil
}

// ListAvailableStudents returns students not yet assigned to any class.
func (c *Client) ListAvailableStudents(ctx context.Context) ([]Student, error) {
	var students []Student
	if err := c.do(ctx, http.MethodGet, "/students/available", nil, &students); err != nil {
		return nil, err
	}
	return nonNil(students), nil
}

// CreateClass validates the form and creates the class.
func (c *Client) CreateClass(ctx context.Context, form NewClass) (Class, error) {
	if len(form.Sections) == 0 {
		form.Sections = DefaultSections()
	}
	if form.AcademicYear == "" {
		form.AcademicYear = fmt.Sprint(time.Now().Year())
	}
	if err := check(form); err != nil {
		return Class{}, err
	}
	var resp struct {
		Class Class `json:"class"`
	}
	if err := c.do(ctx, http.MethodPost, "/classes/create", form, &resp); err != nil {
		return Class{}, err
	}
	return resp.Class, nil
}

// AddStudents assigns students to a class, optionally to one section.
func (c *Client) AddStudents(ctx context.Context, classID, section string, studentIDs []string) error {
	req := addStudentsRequest{StudentIDs: studentIDs, Section: section}
	if err := check(req); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/classes/"+url.PathEscape(classID)+"/students", req, nil)
}

func (c *Client) DeleteClass(ctx context.Context, classID string) error {
	if classID == "" {
		return &ValidationError{Fields: []FieldError{{Field: "classId", Message: "classId is a required field"}}}
	}
	return c.do(ctx, http.MethodDelete, "/classes/"+url.PathEscape(classID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.log.Debug("school admin request", "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &payload) == nil {
		apiErr.Message = payload.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

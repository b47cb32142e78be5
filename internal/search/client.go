// Package search talks to the job-search provider and drives the
// keyword-with-fallback candidate loop.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobbot/internal/model"
	"jobbot/internal/ratelimit"
)

const (
	apiName         = "jobsearch"
	defaultPageSize = 100
	recentSortField = "activation_date"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Filters narrow a provider query.
type Filters struct {
	MinSalary float64
	Limit     int
}

// Client queries the job-search provider. Provider faults are degraded to
// empty batches; callers never see an error from it.
type Client struct {
	httpClient HTTPClient
	endpoint   string
	limiter    *ratelimit.Limiter
	rateMax    int
	rateWindow time.Duration
	timeout    time.Duration
	log        *slog.Logger
}

// NewClient creates a provider client throttled by the given limiter.
func NewClient(httpClient HTTPClient, endpoint string, limiter *ratelimit.Limiter, rateMax int, rateWindow time.Duration, log *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		limiter:    limiter,
		rateMax:    rateMax,
		rateWindow: rateWindow,
		timeout:    10 * time.Second,
		log:        log,
	}
}

// SearchByKeyword returns postings matching the keyword, newest first.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string, f Filters) []model.JobPosting {
	return c.query(ctx, keyword, f)
}

// SearchRecent returns the newest postings without a keyword filter.
func (c *Client) SearchRecent(ctx context.Context, f Filters) []model.JobPosting {
	return c.query(ctx, "", f)
}

func (c *Client) query(ctx context.Context, keyword string, f Filters) []model.JobPosting {
	if !c.admit(ctx) {
		return nil
	}

	perPage := defaultPageSize
	if f.Limit > 0 && f.Limit*2 > perPage {
		perPage = f.Limit * 2
	}

	params := url.Values{}
	params.Set("page", "1")
	params.Set("per_page_count", strconv.Itoa(perPage))
	params.Set("sort_field", recentSortField)
	params.Set("sort_direction", "desc")
	if keyword != "" {
		params.Set("keywords", keyword)
	}
	if f.MinSalary > 0 {
		params.Set("id_Job_Salary", strconv.FormatFloat(f.MinSalary, 'f', -1, 64))
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		c.log.Error("build search request", "error", err)
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("job search request failed", "keyword", keyword, "error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("job search unexpected status", "keyword", keyword, "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		c.log.Warn("read search response", "error", err)
		return nil
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.log.Warn("decode search response", "error", err)
		return nil
	}

	jobs := make([]model.JobPosting, 0, len(envelope.Data.Result))
	for _, item := range envelope.Data.Result {
		job := item.normalize()
		if job.ID == "" || job.Title == "" {
			continue
		}
		jobs = append(jobs, job)
	}
	if f.Limit > 0 && len(jobs) > f.Limit {
		jobs = jobs[:f.Limit]
	}
	return jobs
}

// admit waits out the rate-limit window if the cap is hit. It returns
// false only when the context is cancelled while waiting.
func (c *Client) admit(ctx context.Context) bool {
	for {
		wait := c.limiter.Admit(apiName, c.rateMax, c.rateWindow)
		if wait == 0 {
			return true
		}
		c.log.Info("rate limit reached, waiting", "api", apiName, "wait", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// apiEnvelope mirrors the provider's response shape.
type apiEnvelope struct {
	Data struct {
		Result []apiItem `json:"result"`
	} `json:"data"`
}

type apiItem struct {
	Job     apiJob `json:"job"`
	Company *struct {
		CompanyName string `json:"CompanyName"`
	} `json:"company"`
}

type apiJob struct {
	ID             json.Number `json:"id"`
	SID            json.Number `json:"sid"`
	Title          string      `json:"Title"`
	JobDescription string      `json:"JobDescription"`
	CompanyName    caption     `json:"CompanyName"`
	RedirectURL    string      `json:"redirect_url"`
	SalaryMin      float64     `json:"id_Job_Salary"`
	SalaryMax      float64     `json:"id_Job_MaxSalary"`
	Skills         []caption   `json:"id_Job_Skills"`
	Categories     []caption   `json:"JobCategory"`
	MRTStations    []caption   `json:"id_Job_NearestMRTStation"`
	ActivationDate string      `json:"activation_date"`
}

// caption absorbs the provider's two field shapes: a plain string or an
// object carrying a caption/name. Normalizing here keeps the core from
// ever branching on payload shape.
type caption string

func (c *caption) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = caption(s)
		return nil
	}
	var obj struct {
		Caption string `json:"caption"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("caption field: %w", err)
	}
	if obj.Caption != "" {
		*c = caption(obj.Caption)
	} else {
		*c = caption(obj.Name)
	}
	return nil
}

func captionStrings(cs []caption) []string {
	var out []string
	for _, c := range cs {
		if s := strings.TrimSpace(string(c)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (item apiItem) normalize() model.JobPosting {
	job := item.Job

	id := job.ID.String()
	if id == "" {
		id = job.SID.String()
	}

	company := string(job.CompanyName)
	if company == "" && item.Company != nil {
		company = item.Company.CompanyName
	}

	mrt := captionStrings(job.MRTStations)
	location := "Singapore"
	if len(mrt) > 0 {
		location = strings.Join(mrt, ", ")
	}

	jobURL := job.RedirectURL
	if jobURL == "" && id != "" {
		jobURL = "https://www.findsgjobs.com/job/" + id
	}

	return model.JobPosting{
		ID:          id,
		Title:       job.Title,
		Company:     company,
		Location:    location,
		Description: job.JobDescription,
		URL:         jobURL,
		SalaryMin:   job.SalaryMin,
		SalaryMax:   job.SalaryMax,
		Skills:      captionStrings(job.Skills),
		Categories:  captionStrings(job.Categories),
		MRTStations: mrt,
		PostedAt:    job.ActivationDate,
	}
}

package validate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/util"
)

const (
	checkMaxRetries = 3
	userAgent       = "FactLens/0.1 (+https://github.com/ppiankov/factlens)"
)

// checkSleepFunc is the sleep function used between retries (injectable for tests)
var checkSleepFunc = time.Sleep

// LinkStatus is the outcome of checking one evidence URL
type LinkStatus struct {
	EvidenceID  string            `json:"evidence_id"`
	URL         string            `json:"url"`
	StatusCode  int               `json:"status_code,omitempty"`
	Reachable   bool              `json:"reachable"`
	Dead        bool              `json:"dead"`                 // 404/410 or unreachable
	Disallowed  bool              `json:"disallowed,omitempty"` // skipped by robots.txt
	RedirectURL string            `json:"redirect_url,omitempty"`
	Declared    model.Credibility `json:"declared"`   // tier recorded in the corpus
	Classified  model.Credibility `json:"classified"` // tier derived from the URL
	Error       string            `json:"error,omitempty"`
}

// TierMismatch reports whether the corpus tier disagrees with the URL classification
func (s LinkStatus) TierMismatch() bool {
	return s.Declared != "" && s.Declared != s.Classified
}

// LinkChecker checks evidence source links concurrently
type LinkChecker struct {
	httpClient *http.Client
	maxWorkers int
	authority  *AuthorityClassifier
	robots     *util.RobotsChecker
}

// NewLinkChecker creates a new link checker
func NewLinkChecker(timeout time.Duration, maxWorkers int, authConfig *model.AuthorityConfig, httpProxy, httpsProxy, noProxy string) *LinkChecker {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	return &LinkChecker{
		httpClient: client,
		maxWorkers: maxWorkers,
		authority:  NewAuthorityClassifier(authConfig),
		robots:     util.NewRobotsChecker(userAgent, client),
	}
}

// Check checks every item's URL; results are in input order
func (c *LinkChecker) Check(ctx context.Context, items []model.EvidenceItem) []LinkStatus {
	results := make([]LinkStatus, len(items))
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, c.maxWorkers)

	for i, item := range items {
		wg.Add(1)
		go func(idx int, item model.EvidenceItem) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = c.baseStatus(item)
				results[idx].Error = "context cancelled"
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = c.checkWithRetry(ctx, item)
		}(i, item)
	}

	wg.Wait()
	return results
}

func (c *LinkChecker) baseStatus(item model.EvidenceItem) LinkStatus {
	return LinkStatus{
		EvidenceID: item.ID,
		URL:        item.URL,
		Declared:   item.Credibility,
		Classified: c.authority.Classify(item.URL),
	}
}

// checkSingle issues one HEAD request, honouring robots.txt
func (c *LinkChecker) checkSingle(ctx context.Context, item model.EvidenceItem) LinkStatus {
	result := c.baseStatus(item)

	if strings.TrimSpace(item.URL) == "" {
		result.Error = "no url"
		return result
	}

	if !c.robots.IsAllowed(ctx, item.URL) {
		result.Disallowed = true
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, item.URL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("create request: %v", err)
		result.Dead = true
		return result
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.Dead = true
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Reachable = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		result.Dead = true
	}

	if final := resp.Request.URL.String(); final != item.URL {
		result.RedirectURL = final
	}

	return result
}

// checkWithRetry retries transient failures with exponential backoff
func (c *LinkChecker) checkWithRetry(ctx context.Context, item model.EvidenceItem) LinkStatus {
	var result LinkStatus
	for attempt := 0; attempt < checkMaxRetries; attempt++ {
		result = c.checkSingle(ctx, item)
		if !isRetryable(result) || ctx.Err() != nil {
			return result
		}
		if attempt < checkMaxRetries-1 {
			checkSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return result
}

// isRetryable returns true for results that indicate transient failures
func isRetryable(result LinkStatus) bool {
	if result.StatusCode >= 500 && result.StatusCode < 600 {
		return true
	}
	if result.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if result.Error != "" {
		s := strings.ToLower(result.Error)
		return strings.Contains(s, "timeout") ||
			strings.Contains(s, "connection refused") ||
			strings.Contains(s, "connection reset")
	}
	return false
}

package upstream

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/MrWong99/screeningd/internal/apperr"
	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/retry"
)

// Compile-time assertion that OpportunitiesClient implements domain.OpportunitiesPort.
var _ domain.OpportunitiesPort = (*OpportunitiesClient)(nil)

// OpportunitiesClient resolves a job offer from the Torre opportunities API.
type OpportunitiesClient struct {
	baseURL    string
	httpClient *http.Client
	retries    int
}

// NewOpportunitiesClient creates an OpportunitiesClient against baseURL.
// retries is the number of attempts made after the first failed call.
func NewOpportunitiesClient(baseURL string, timeout time.Duration, retries int) *OpportunitiesClient {
	return &OpportunitiesClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
	}
}

type opportunityResponse struct {
	Objective string                `json:"objective"`
	Details   []opportunityDetail   `json:"details"`
	Strengths []bioStrength         `json:"strengths"`
}

type opportunityDetail struct {
	Code    string `json:"code"`
	Content string `json:"content"`
}

var detailSplitPattern = regexp.MustCompile(`[\n•·]`)

// GetOpportunity fetches and parses externalID's job offer. Returns
// (nil, nil) if the upstream API reports the offer as not found.
func (c *OpportunitiesClient) GetOpportunity(ctx context.Context, externalID string) (*domain.JobOffer, error) {
	url := fmt.Sprintf("%s/api/suite/opportunities/%s", c.baseURL, externalID)

	var offer *domain.JobOffer
	err := retry.Do(ctx, c.retries+1, 200*time.Millisecond, func(attempt int) error {
		resp, notFound, err := fetchJSON[opportunityResponse](ctx, c.httpClient, url)
		if notFound {
			offer = nil
			return nil
		}
		if err != nil {
			return err
		}
		offer = parseOpportunity(externalID, resp)
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstreamFailure, fmt.Sprintf("opportunity lookup for %q", externalID), err)
	}
	return offer, nil
}

func parseOpportunity(externalID string, data opportunityResponse) *domain.JobOffer {
	var strengths, responsibilities []string

	for _, d := range data.Details {
		code := strings.ToUpper(d.Code)
		switch {
		case code == "STRENGTHS" || strings.Contains(strings.ToLower(d.Code), "strength"):
			strengths = splitLines(d.Content)
		case code == "RESPONSIBILITIES" || strings.Contains(strings.ToLower(d.Code), "responsibilit"):
			responsibilities = splitLines(d.Content)
		}
	}

	if len(strengths) == 0 {
		for _, s := range data.Strengths {
			if s.Name != "" {
				strengths = append(strengths, s.Name)
			}
		}
	}

	return &domain.JobOffer{
		ExternalID:       externalID,
		Objective:        data.Objective,
		Strengths:        strengths,
		Responsibilities: responsibilities,
	}
}

// splitLines breaks a free-text detail block into trimmed, non-empty
// lines, capped at 50 entries, matching the upstream's bullet/newline
// delimited format.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	parts := detailSplitPattern.Split(content, -1)
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lines = append(lines, p)
		if len(lines) == 50 {
			break
		}
	}
	return lines
}

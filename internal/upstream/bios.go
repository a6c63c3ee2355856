// Package upstream adapts the Torre candidate-bios and job-opportunity
// lookup APIs to the domain.BiosPort and domain.OpportunitiesPort
// capability interfaces.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/screeningd/internal/apperr"
	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/retry"
)

// Compile-time assertion that BiosClient implements domain.BiosPort.
var _ domain.BiosPort = (*BiosClient)(nil)

// BiosClient resolves a candidate's public profile from the Torre bios API.
type BiosClient struct {
	baseURL    string
	httpClient *http.Client
	retries    int
}

// NewBiosClient creates a BiosClient against baseURL (e.g. "https://torre.ai").
// retries is the number of attempts made after the first failed call.
func NewBiosClient(baseURL string, timeout time.Duration, retries int) *BiosClient {
	return &BiosClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
	}
}

type bioResponse struct {
	Person struct {
		Name      string `json:"name"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"person"`
	Strengths []bioStrength `json:"strengths"`
	Jobs      []bioJob      `json:"jobs"`
	Experience []bioJob     `json:"experience"`
}

type bioStrength struct {
	Name string `json:"name"`
}

type bioJob struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Organization string `json:"organization"`
}

// GetBio fetches and parses username's public profile. Returns (nil, nil)
// if the upstream API reports the username as not found.
func (c *BiosClient) GetBio(ctx context.Context, username string) (*domain.Candidate, error) {
	url := fmt.Sprintf("%s/api/genome/bios/%s", c.baseURL, username)

	var candidate *domain.Candidate
	err := retry.Do(ctx, c.retries+1, 200*time.Millisecond, func(attempt int) error {
		resp, notFound, err := fetchJSON[bioResponse](ctx, c.httpClient, url)
		if notFound {
			candidate = nil
			return nil
		}
		if err != nil {
			return err
		}
		candidate = parseBio(username, resp)
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstreamFailure, fmt.Sprintf("bios lookup for %q", username), err)
	}
	return candidate, nil
}

func parseBio(username string, data bioResponse) *domain.Candidate {
	fullName := data.Person.Name
	if fullName == "" {
		fullName = strings.TrimSpace(data.Person.FirstName + " " + data.Person.LastName)
	}
	if fullName == "" {
		fullName = username
	}

	skills := make([]string, 0, len(data.Strengths))
	for _, s := range data.Strengths {
		if s.Name != "" {
			skills = append(skills, s.Name)
		}
	}

	source := data.Experience
	if len(source) == 0 {
		source = data.Jobs
	}
	jobs := make([]domain.PriorJob, 0, len(source))
	for i, j := range source {
		if i >= 20 {
			break
		}
		title := j.Title
		if title == "" {
			title = j.Name
		}
		jobs = append(jobs, domain.PriorJob{Title: title, Organization: j.Organization})
	}

	return &domain.Candidate{
		Username: username,
		FullName: fullName,
		Skills:   skills,
		Jobs:     jobs,
	}
}

// fetchJSON issues a GET against url and decodes the JSON body into T.
// notFound is true when the server responded 404; in that case err is nil
// and T's zero value is returned.
func fetchJSON[T any](ctx context.Context, client *http.Client, url string) (result T, notFound bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return result, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return result, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return result, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return result, false, fmt.Errorf("upstream: unexpected status %d from %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, false, fmt.Errorf("upstream: decode response from %s: %w", url, err)
	}
	return result, false, nil
}

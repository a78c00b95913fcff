// Package openings reads the remote job feed, ranks listings by how
// reachable they are for students and tags each with detected skills.
package openings

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/skillxpress/skillxpress/internal/fetch"
	"github.com/skillxpress/skillxpress/internal/logger"
	"github.com/skillxpress/skillxpress/internal/skills"
	"github.com/skillxpress/skillxpress/internal/types"
)

const serviceName = "openings feed"

// DefaultLimit caps the number of listings returned.
const DefaultLimit = 250

// Opening is one listing as returned to clients.
type Opening struct {
	Title         string   `json:"title"`
	Company       string   `json:"company"`
	Location      string   `json:"location"`
	Type          string   `json:"type"`
	Category      string   `json:"category"`
	ApplyLink     string   `json:"apply_link"`
	IsRemote      bool     `json:"is_remote"`
	PublishedAt   string   `json:"published_at,omitempty"`
	Skills        []string `json:"skills"`
	MatchedSkills []string `json:"matched_skills"`
}

type feedJob struct {
	Title           string   `json:"title"`
	CompanyName     string   `json:"company_name"`
	Location        string   `json:"candidate_required_location"`
	JobType         string   `json:"job_type"`
	Category        string   `json:"category"`
	URL             string   `json:"url"`
	PublicationDate string   `json:"publication_date"`
	Tags            []string `json:"tags"`
	Description     string   `json:"description"`
}

type feed struct {
	Jobs *[]feedJob `json:"jobs"`
}

// Options configures a Service.
type Options struct {
	URL      string
	Limit    int
	Timeout  time.Duration
	Keywords skills.KeywordMap

	// HTTPClient overrides the transport; nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// Service is safe for concurrent use.
type Service struct {
	url      string
	limit    int
	keywords skills.KeywordMap
	client   *fetch.Client
	log      *logger.Logger
}

// NewService creates a Service.
func NewService(opts Options, log *logger.Logger) *Service {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Keywords == nil {
		opts.Keywords = skills.DefaultKeywords()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		url:      opts.URL,
		limit:    opts.Limit,
		keywords: opts.Keywords,
		client:   fetch.NewClient(fetch.Options{Timeout: opts.Timeout, HTTPClient: opts.HTTPClient}),
		log:      log.With("component", "openings"),
	}
}

// List fetches the feed and returns at most the configured number of
// listings, India-located first, then worldwide, then internships, then the
// rest, keeping feed order within each tier. known holds the user's skills;
// the skills a listing mentions are reported in MatchedSkills.
func (s *Service) List(ctx context.Context, known types.SkillScoreMap) ([]Opening, error) {
	var f feed
	if err := s.client.GetJSON(ctx, s.url, &f); err != nil {
		var fe *fetch.Error
		if errors.As(err, &fe) && fe.Timeout {
			return nil, &types.UpstreamTimeoutError{Service: serviceName, Timeout: s.client.Timeout(), Cause: err}
		}
		return nil, &types.UpstreamUnavailableError{Service: serviceName, Message: "fetch failed", Cause: err}
	}
	if f.Jobs == nil {
		return nil, &types.UpstreamUnavailableError{Service: serviceName, Message: "feed has no jobs list"}
	}

	jobs := *f.Jobs
	sort.SliceStable(jobs, func(i, j int) bool {
		return priority(jobs[i]) < priority(jobs[j])
	})
	if len(jobs) > s.limit {
		jobs = jobs[:s.limit]
	}

	knownKeys := make(map[string]bool, len(known))
	for name, score := range known {
		if score > 0 {
			knownKeys[skills.Key(name)] = true
		}
	}

	out := make([]Opening, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, s.annotate(j, knownKeys))
	}
	s.log.Debug("openings listed", "count", len(out))
	return out, nil
}

func (s *Service) annotate(j feedJob, known map[string]bool) Opening {
	text, err := fetch.HTMLToText(j.Description)
	if err != nil {
		s.log.Warn("failed to parse listing description", "title", j.Title, "error", err)
		text = ""
	}
	detected := s.keywords.Present(strings.Join([]string{j.Title, strings.Join(j.Tags, ", "), text}, "\n"))

	matched := make([]string, 0)
	for _, skill := range detected {
		if known[skills.Key(skill)] {
			matched = append(matched, skill)
		}
	}

	location := strings.TrimSpace(j.Location)
	if location == "" {
		location = "Remote"
	}
	jobType := j.JobType
	if jobType == "" {
		jobType = "Job"
	}
	category := j.Category
	if category == "" {
		category = "Other"
	}
	return Opening{
		Title:         j.Title,
		Company:       j.CompanyName,
		Location:      location,
		Type:          jobType,
		Category:      category,
		ApplyLink:     j.URL,
		IsRemote:      true,
		PublishedAt:   j.PublicationDate,
		Skills:        detected,
		MatchedSkills: matched,
	}
}

// priority orders listings: 0 India, 1 worldwide or anywhere, 2 internship, 3 other.
func priority(j feedJob) int {
	loc := strings.ToLower(j.Location)
	switch {
	case strings.Contains(loc, "india"):
		return 0
	case strings.Contains(loc, "worldwide"), strings.Contains(loc, "anywhere"):
		return 1
	case strings.Contains(strings.ToLower(j.JobType), "intern"), strings.Contains(strings.ToLower(j.Title), "intern"):
		return 2
	default:
		return 3
	}
}

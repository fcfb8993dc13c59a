package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/autumnsgrove/grove-core/internal/config"
	"go.uber.org/zap"
)

const defaultEndpoint = "https://api.github.com/graphql"

// commitsQuery walks the viewer's recently-updated repositories and pages the
// default branch history since the start of the target day. The API only
// supports an open-ended "since", so the end of the day is enforced
// client-side.
const commitsQuery = `
query($username: String!, $first: Int!, $since: GitTimestamp!) {
  user(login: $username) {
    repositories(first: $first, orderBy: {field: UPDATED_AT, direction: DESC}) {
      nodes {
        name
        defaultBranchRef {
          target {
            ... on Commit {
              history(first: 100, since: $since) {
                nodes {
                  oid
                  message
                  committedDate
                  additions
                  deletions
                  author {
                    user {
                      login
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

// Commit is one qualifying commit for a day, trimmed for summarization.
type Commit struct {
	SHA       string    `json:"sha"`
	Message   string    `json:"message"`
	Date      time.Time `json:"date"`
	Repo      string    `json:"repo"`
	Additions int       `json:"additions"`
	Deletions int       `json:"deletions"`
}

// Client fetches commits via the GitHub GraphQL API.
type Client struct {
	cfg      config.GitHubConfig
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

func NewClient(cfg config.GitHubConfig, logger *zap.Logger) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:      cfg,
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger.Named("GitHubClient"),
	}
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		User struct {
			Repositories struct {
				Nodes []struct {
					Name             string `json:"name"`
					DefaultBranchRef *struct {
						Target struct {
							History struct {
								Nodes []struct {
									OID           string `json:"oid"`
									Message       string `json:"message"`
									CommittedDate string `json:"committedDate"`
									Additions     int    `json:"additions"`
									Deletions     int    `json:"deletions"`
									Author        struct {
										User *struct {
											Login string `json:"login"`
										} `json:"user"`
									} `json:"author"`
								} `json:"nodes"`
							} `json:"history"`
						} `json:"target"`
					} `json:"defaultBranchRef"`
				} `json:"nodes"`
			} `json:"repositories"`
		} `json:"user"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// CommitsForDate returns the configured user's commits within
// [date 00:00:00Z, date 23:59:59Z], newest first.
func (c *Client) CommitsForDate(ctx context.Context, date string) ([]Commit, error) {
	startOfDay, err := time.Parse(time.RFC3339, date+"T00:00:00Z")
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	endOfDay := startOfDay.Add(24*time.Hour - time.Second)

	body, err := json.Marshal(graphQLRequest{
		Query: commitsQuery,
		Variables: map[string]interface{}{
			"username": c.cfg.Username,
			"first":    30,
			"since":    startOfDay.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "grove-core-daily-summary")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var payload graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode github response: %w", err)
	}
	if len(payload.Errors) > 0 {
		return nil, fmt.Errorf("github graphql error: %s", payload.Errors[0].Message)
	}

	commits := make([]Commit, 0, 32)
	for _, repo := range payload.Data.User.Repositories.Nodes {
		if repo.DefaultBranchRef == nil {
			continue
		}
		for _, node := range repo.DefaultBranchRef.Target.History.Nodes {
			if node.Author.User == nil || !strings.EqualFold(node.Author.User.Login, c.cfg.Username) {
				continue
			}
			committed, err := time.Parse(time.RFC3339, node.CommittedDate)
			if err != nil || committed.After(endOfDay) {
				continue
			}
			commits = append(commits, Commit{
				SHA:       shortSHA(node.OID),
				Message:   firstLine(node.Message, 100),
				Date:      committed,
				Repo:      repo.Name,
				Additions: node.Additions,
				Deletions: node.Deletions,
			})
		}
	}

	sort.Slice(commits, func(i, j int) bool {
		return commits[i].Date.After(commits[j].Date)
	})

	c.logger.Info("fetched commits",
		zap.String("date", date),
		zap.Int("count", len(commits)),
	)
	return commits, nil
}

func shortSHA(oid string) string {
	if len(oid) > 7 {
		return oid[:7]
	}
	return oid
}

func firstLine(message string, maxLen int) string {
	line := message
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	runes := []rune(line)
	if len(runes) > maxLen {
		line = string(runes[:maxLen])
	}
	return line
}

package services

import (
  "bytes"
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "net/http"
  "strings"
  "time"

  "github.com/mangamuse/mangamuse-backend/internal/config"
  "github.com/mangamuse/mangamuse-backend/internal/logger"
  "github.com/mangamuse/mangamuse-backend/internal/types"
  "github.com/mangamuse/mangamuse-backend/internal/utils"
)

// InferenceClient performs one bounded call to the external generative
// ranking service and returns the raw assistant text. Exactly one attempt is
// made per generation cycle; retry happens on the next scheduled pass, never
// here.
type InferenceClient interface {
  RankCandidates(ctx context.Context, profile types.UserProfile, candidates []types.CandidateItem, want int) (string, error)
}

type inferenceClient struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  model      string
  timeout    time.Duration
  httpClient *http.Client
}

func NewInferenceClient(baseLog *logger.Logger, cfg config.RecommenderConfig) (InferenceClient, error) {
  log := baseLog.With("service", "InferenceClient")

  apiKey := utils.GetEnv("INFERENCE_API_KEY", "", nil)
  if apiKey == "" {
    return nil, fmt.Errorf("missing INFERENCE_API_KEY")
  }
  baseURL := utils.GetEnv("INFERENCE_BASE_URL", "https://api.openai.com", log)
  model := utils.GetEnv("INFERENCE_MODEL", "gpt-4o-mini", log)

  return &inferenceClient{
    log:     log,
    baseURL: strings.TrimRight(baseURL, "/"),
    apiKey:  apiKey,
    model:   model,
    timeout: cfg.InferenceTimeout(),
    // client-level timeout is a backstop; the per-call ctx deadline is the
    // one that matters
    httpClient: &http.Client{Timeout: cfg.InferenceTimeout() + 5*time.Second},
  }, nil
}

type chatRequest struct {
  Model    string `json:"model"`
  Messages []struct {
    Role    string `json:"role"`
    Content string `json:"content"`
  } `json:"messages"`
  Temperature float64 `json:"temperature"`
}

type chatResponse struct {
  Choices []struct {
    Message struct {
      Content string `json:"content"`
    } `json:"message"`
  } `json:"choices"`
}

type upstreamErrorBody struct {
  Error struct {
    Message string `json:"message"`
  } `json:"error"`
}

func (c *inferenceClient) RankCandidates(ctx context.Context, profile types.UserProfile, candidates []types.CandidateItem, want int) (string, error) {
  started := time.Now()
  callCtx, cancel := context.WithTimeout(ctx, c.timeout)
  defer cancel()

  req := chatRequest{
    Model:       c.model,
    Temperature: 0.4,
  }
  req.Messages = []struct {
    Role    string `json:"role"`
    Content string `json:"content"`
  }{
    {Role: "system", Content: rankingSystemPrompt},
    {Role: "user", Content: buildRankingPrompt(profile, candidates, want)},
  }

  var buf bytes.Buffer
  if err := json.NewEncoder(&buf).Encode(req); err != nil {
    return "", err
  }

  httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
  if err != nil {
    return "", err
  }
  httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
  httpReq.Header.Set("Content-Type", "application/json")

  resp, err := c.httpClient.Do(httpReq)
  if err != nil {
    if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
      return "", &TimeoutError{Elapsed: time.Since(started)}
    }
    if errors.Is(err, context.DeadlineExceeded) {
      return "", &TimeoutError{Elapsed: time.Since(started)}
    }
    return "", err
  }
  defer resp.Body.Close()

  raw, err := io.ReadAll(resp.Body)
  if err != nil {
    if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
      return "", &TimeoutError{Elapsed: time.Since(started)}
    }
    return "", err
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    message := string(raw)
    var parsed upstreamErrorBody
    if jsonErr := json.Unmarshal(raw, &parsed); jsonErr == nil && parsed.Error.Message != "" {
      message = parsed.Error.Message
    }
    return "", &ExternalServiceError{StatusCode: resp.StatusCode, Message: message}
  }

  var parsed chatResponse
  if err := json.Unmarshal(raw, &parsed); err != nil {
    return "", fmt.Errorf("decode inference reply: %w", err)
  }
  if len(parsed.Choices) == 0 {
    return "", &ExternalServiceError{StatusCode: resp.StatusCode, Message: "reply contained no choices"}
  }

  c.log.Debug("Inference call completed", "elapsed", time.Since(started).String(), "candidates", len(candidates))
  return parsed.Choices[0].Message.Content, nil
}

const rankingSystemPrompt = "You are a manga recommendation engine. You are given a reader profile and a numbered list of candidate titles. Reply with ONLY a JSON array, no prose."

func buildRankingPrompt(profile types.UserProfile, candidates []types.CandidateItem, want int) string {
  var b strings.Builder

  b.WriteString("Reader profile:\n")
  if len(profile.Genres) > 0 {
    fmt.Fprintf(&b, "- favorite genres: %s\n", strings.Join(profile.Genres, ", "))
  } else {
    b.WriteString("- favorite genres: (none known yet)\n")
  }
  if len(profile.AvoidGenres) > 0 {
    fmt.Fprintf(&b, "- genres to avoid: %s\n", strings.Join(profile.AvoidGenres, ", "))
  }

  b.WriteString("\nCandidates:\n")
  for _, candidate := range candidates {
    fmt.Fprintf(&b, "- id: %s | title: %s | genres: %s | about: %s\n",
      candidate.ID, candidate.Title, strings.Join(candidate.Genres, ", "), candidate.DescriptionSnippet)
  }

  fmt.Fprintf(&b, "\nPick exactly %d candidates for this reader. ", want)
  b.WriteString(`Answer with a JSON array where each element is {"id": "<candidate id>", "reason": "<15-20 words on why it fits>", "matchPercentage": <integer 1-100>}. `)
  b.WriteString("Only use ids from the candidate list above.")
  return b.String()
}

package services

import (
  "encoding/json"
  "regexp"
  "strings"
)

// modelPick is one validated element of the model's reply. The id is still
// untrusted at this point: membership in the candidate set is the
// assembler's job.
type modelPick struct {
  ID     string
  Reason string
  Match  float64
}

var (
  jsonArrayPattern = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
  codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// extractRecommendationArray pulls a structured list out of whatever text
// the model produced. The reply is not a typed contract: it may be clean
// JSON, JSON wrapped in prose, a fenced code block, or garbage. Strategies
// run in order, first one that yields parseable JSON wins.
func extractRecommendationArray(raw string) ([]modelPick, error) {
  var candidates []string

  // 1. top-level JSON array of objects anywhere in the text
  if m := jsonArrayPattern.FindString(raw); m != "" {
    candidates = append(candidates, m)
  }

  // 2. fenced code block, coerced to array brackets if the fence held bare
  // objects
  if m := codeFencePattern.FindStringSubmatch(raw); len(m) == 2 {
    block := strings.TrimSpace(m[1])
    if block != "" {
      if !strings.HasPrefix(block, "[") {
        block = "[" + block
      }
      if !strings.HasSuffix(block, "]") {
        block = block + "]"
      }
      candidates = append(candidates, block)
    }
  }

  // 3. everything between the first '[' and the last ']'
  if start, end := strings.Index(raw, "["), strings.LastIndex(raw, "]"); start >= 0 && end > start {
    candidates = append(candidates, raw[start:end+1])
  }

  var elements []json.RawMessage
  parsed := false
  for _, candidate := range candidates {
    var attempt []json.RawMessage
    if err := json.Unmarshal([]byte(candidate), &attempt); err == nil {
      elements = attempt
      parsed = true
      break
    }
  }
  if !parsed {
    return nil, &MalformedResponseError{Raw: raw}
  }

  // Elements are validated one by one; a bad element is dropped, not fatal.
  picks := make([]modelPick, 0, len(elements))
  for _, element := range elements {
    if pick, ok := validateElement(element); ok {
      picks = append(picks, pick)
    }
  }
  if len(picks) == 0 {
    return nil, &NoValidRecommendationsError{Parsed: len(elements)}
  }
  return picks, nil
}

func validateElement(element json.RawMessage) (modelPick, bool) {
  var fields map[string]any
  if err := json.Unmarshal(element, &fields); err != nil {
    return modelPick{}, false
  }

  id, _ := fields["id"].(string)
  if strings.TrimSpace(id) == "" {
    return modelPick{}, false
  }
  reason, _ := fields["reason"].(string)
  if strings.TrimSpace(reason) == "" {
    return modelPick{}, false
  }
  match, ok := fields["matchPercentage"].(float64)
  if !ok {
    return modelPick{}, false
  }

  return modelPick{
    ID:     strings.TrimSpace(id),
    Reason: strings.TrimSpace(reason),
    Match:  match,
  }, true
}

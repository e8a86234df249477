package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// EntropySource supplies the unpredictable seed for location selection.
type EntropySource interface {
	Entropy(ctx context.Context, cycleID uint64) (string, error)
}

// HTTPEntropySource pulls entropy from an external beacon endpoint that
// returns {"entropy": "<hex>"}.
type HTTPEntropySource struct {
	HTTP     *http.Client
	Endpoint string
}

func (s *HTTPEntropySource) Entropy(ctx context.Context, cycleID uint64) (string, error) {
	endpoint := strings.TrimSpace(s.Endpoint)
	if endpoint == "" {
		return "", fmt.Errorf("no entropy endpoint configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}
	var parsed struct {
		Entropy string `json:"entropy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if strings.TrimSpace(parsed.Entropy) == "" {
		return "", fmt.Errorf("empty entropy")
	}
	return strings.TrimSpace(parsed.Entropy), nil
}

// ClockEntropySource is the degraded fallback when no beacon is reachable:
// it hashes the cycle id and the current wall clock. Predictable to anyone
// who can guess the tick time, so it is only for development and outages.
type ClockEntropySource struct{}

func (ClockEntropySource) Entropy(_ context.Context, cycleID uint64) (string, error) {
	seed := strconv.FormatUint(cycleID, 10) + ":" + strconv.FormatInt(time.Now().UnixNano(), 10)
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:]), nil
}

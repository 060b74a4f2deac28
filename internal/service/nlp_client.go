package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"mime/multipart"
	"net/http"
	"time"

	"formbridge/internal/config"
)

// SessionStateCompleted is reported by the NLP service once every
// label has been collected; the service then posts the final answers
// to our callback endpoint on its own.
const SessionStateCompleted = "COMPLETED"

// NLPClient wraps the external conversational-form API
type NLPClient struct {
	baseURL     string
	callbackURL string
	httpClient  *http.Client
	maxRetries  int
}

// NewNLPClient creates a new NLP service client
func NewNLPClient(cfg *config.NLPConfig) *NLPClient {
	if !cfg.IsEnabled() {
		log.Println("Warning: NLP_API_URL not set")
	}

	return &NLPClient{
		baseURL:     cfg.BaseURL,
		callbackURL: cfg.CallbackURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		maxRetries: cfg.MaxRetries,
	}
}

// StartRequest opens a conversational session
type StartRequest struct {
	SessionID   string   `json:"sessionId"`
	Labelset    []string `json:"labelset"`
	CallbackURL string   `json:"callbackUrl"`
}

// StartResponse carries the service's opening question
type StartResponse struct {
	NextQuestion string `json:"nextQuestion"`
}

// MessageResponse is the service's reply to one user turn
type MessageResponse struct {
	BotMessage      string `json:"botMessage"`
	TranscribedText string `json:"transcribedText,omitempty"`
	SessionState    string `json:"sessionState"`
}

// Start opens a session for the given labelset and returns the first
// bot question.
func (c *NLPClient) Start(ctx context.Context, sessionID string, labelset []string) (*StartResponse, error) {
	payload, err := json.Marshal(StartRequest{
		SessionID:   sessionID,
		Labelset:    labelset,
		CallbackURL: c.callbackURL,
	})
	if err != nil {
		return nil, err
	}

	respBody, err := c.doRequest(ctx, "/start", "application/json", func() io.Reader {
		return bytes.NewReader(payload)
	})
	if err != nil {
		return nil, err
	}

	var start StartResponse
	if err := json.Unmarshal(respBody, &start); err != nil {
		return nil, fmt.Errorf("failed to parse start response: %w", err)
	}
	return &start, nil
}

// SendText relays one typed user turn
func (c *NLPClient) SendText(ctx context.Context, sessionID, message string) (*MessageResponse, error) {
	return c.sendMessage(ctx, sessionID, func(mw *multipart.Writer) error {
		return mw.WriteField("message", message)
	})
}

// SendAudio relays one recorded user turn
func (c *NLPClient) SendAudio(ctx context.Context, sessionID string, audio []byte) (*MessageResponse, error) {
	return c.sendMessage(ctx, sessionID, func(mw *multipart.Writer) error {
		part, err := mw.CreateFormFile("audio_file", "recording.webm")
		if err != nil {
			return err
		}
		_, err = part.Write(audio)
		return err
	})
}

func (c *NLPClient) sendMessage(ctx context.Context, sessionID string, addPart func(*multipart.Writer) error) (*MessageResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("sessionId", sessionID); err != nil {
		return nil, err
	}
	if err := addPart(mw); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	raw := body.Bytes()
	respBody, err := c.doRequest(ctx, "/message", mw.FormDataContentType(), func() io.Reader {
		return bytes.NewReader(raw)
	})
	if err != nil {
		return nil, err
	}

	var msg MessageResponse
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message response: %w", err)
	}
	return &msg, nil
}

// doRequest performs a POST with retry on rate limiting. The body
// factory lets each attempt re-read the payload.
func (c *NLPClient) doRequest(ctx context.Context, path, contentType string, body func() io.Reader) ([]byte, error) {
	url := c.baseURL + path
	log.Printf("[NLP Client] POST %s", path)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[NLP Client] Retry attempt %d/%d for POST %s", attempt, c.maxRetries, path)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body())
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Printf("[NLP Client] ERROR: HTTP request failed (attempt %d): %v", attempt+1, err)
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			log.Printf("[NLP Client] RATE LIMITED: retry %d/%d in %v", attempt+1, c.maxRetries, backoff)
			time.Sleep(backoff)
			lastErr = fmt.Errorf("rate limited")
			continue
		}

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("NLP API error %d: %s", resp.StatusCode, string(respBody))
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 8 * time.Second}
}

func doJSON(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("api error: %s (status: %d)", strings.TrimSpace(string(body)), resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// LibreTranslate speaks the libretranslate.com API. Label tells mirrors
// apart in results and logs.
type LibreTranslate struct {
	BaseURL    string
	APIKey     string
	Label      string
	HTTPClient *http.Client
}

func NewLibreTranslate(baseURL, apiKey string) *LibreTranslate {
	return &LibreTranslate{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, HTTPClient: defaultHTTPClient()}
}

// NewLibreMirror is a keyless community LibreTranslate instance
func NewLibreMirror(baseURL string) *LibreTranslate {
	p := NewLibreTranslate(baseURL, "")
	p.Label = "libretranslate-mirror"
	return p
}

func (p *LibreTranslate) Name() string {
	if p.Label != "" {
		return p.Label
	}
	return "libretranslate"
}

func (p *LibreTranslate) Translate(ctx context.Context, text, source, target string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"q":       text,
		"source":  source,
		"target":  target,
		"format":  "text",
		"api_key": p.APIKey,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := doJSON(p.HTTPClient, req, &out); err != nil {
		return "", err
	}
	return out.TranslatedText, nil
}

// MyMemory speaks the api.mymemory.translated.net API. It has no
// auto-detect, so "auto" is sent as English.
type MyMemory struct {
	BaseURL    string
	Email      string
	HTTPClient *http.Client
}

func NewMyMemory(baseURL, email string) *MyMemory {
	return &MyMemory{BaseURL: strings.TrimRight(baseURL, "/"), Email: email, HTTPClient: defaultHTTPClient()}
}

func (p *MyMemory) Name() string { return "mymemory" }

func (p *MyMemory) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == "auto" {
		source = "en"
	}
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", source+"|"+target)
	if p.Email != "" {
		q.Set("de", p.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/get?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	var out struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
		ResponseStatus int `json:"responseStatus"`
	}
	if err := doJSON(p.HTTPClient, req, &out); err != nil {
		return "", err
	}
	if out.ResponseStatus != 0 && out.ResponseStatus != http.StatusOK {
		return "", fmt.Errorf("api status %d", out.ResponseStatus)
	}
	return out.ResponseData.TranslatedText, nil
}

// Lingva speaks the lingva.ml proxy API
type Lingva struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewLingva(baseURL string) *Lingva {
	return &Lingva{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: defaultHTTPClient()}
}

func (p *Lingva) Name() string { return "lingva" }

func (p *Lingva) Translate(ctx context.Context, text, source, target string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/%s/%s/%s", p.BaseURL, url.PathEscape(source), url.PathEscape(target), url.PathEscape(text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	var out struct {
		Translation string `json:"translation"`
	}
	if err := doJSON(p.HTTPClient, req, &out); err != nil {
		return "", err
	}
	return out.Translation, nil
}

// GoogleWeb speaks the keyless translate.googleapis.com web client endpoint.
// The answer is a nested array whose first element lists translated segments.
type GoogleWeb struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewGoogleWeb(baseURL string) *GoogleWeb {
	return &GoogleWeb{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: defaultHTTPClient()}
}

func (p *GoogleWeb) Name() string { return "google" }

func (p *GoogleWeb) Translate(ctx context.Context, text, source, target string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/translate_a/single?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	var out []interface{}
	if err := doJSON(p.HTTPClient, req, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", errors.New("unexpected response shape")
	}
	segments, ok := out[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected response shape")
	}

	var b strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]interface{})
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			b.WriteString(s)
		}
	}
	return b.String(), nil
}

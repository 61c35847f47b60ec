package translate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

var (
	ErrEmptyText          = errors.New("text is empty")
	ErrAllProvidersFailed = errors.New("all translation providers failed")
)

type Provider interface {
	Name() string
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type Result struct {
	Text     string `json:"translatedText"`
	Provider string `json:"provider"`
	Source   string `json:"source"`
	Target   string `json:"target"`
}

// Chain tries providers in order and returns the first answer. Nil entries
// are skipped so optional providers can be left unconfigured.
type Chain struct {
	providers []Provider
}

func NewChain(providers ...Provider) *Chain {
	c := &Chain{}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

func (c *Chain) Translate(ctx context.Context, text, source, target string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if source == "" {
		source = "auto"
	}
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		target = "en"
	}

	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		translated, err := p.Translate(ctx, text, source, target)
		if err == nil && strings.TrimSpace(translated) != "" {
			return &Result{Text: translated, Provider: p.Name(), Source: source, Target: target}, nil
		}
		if err == nil {
			err = errors.New("empty translation")
		}
		log.Printf("Translation provider %s failed: %v", p.Name(), err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}

	return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}

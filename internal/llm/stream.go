package llm

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const maxStreamLine = 16 << 20

type streamChunk struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *APIErrorBody `json:"error"`
}

func (c *streamChunk) text() string {
	var b strings.Builder
	for _, cand := range c.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func (c *streamChunk) err() error {
	if c.Error == nil {
		return nil
	}
	body, _ := json.Marshal(APIErrorEnvelope{Error: c.Error})
	return &StatusError{StatusCode: c.Error.Code, Body: string(body)}
}

// ParseStreamText reads a streamed generation response and concatenates the
// text of every chunk in arrival order. It accepts server-sent events
// ("data: {...}" lines), a JSON array of chunks, or chunks written back to back.
// An error object inside the stream aborts parsing.
func ParseStreamText(r io.Reader) (string, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var out strings.Builder
	emit := func(c *streamChunk) error {
		if err := c.err(); err != nil {
			return err
		}
		out.WriteString(c.text())
		return nil
	}

	switch first {
	case '[':
		err = parseJSONArray(br, emit)
	case '{':
		err = parseJSONObjects(br, emit)
	default:
		err = parseSSE(br, emit)
	}
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == ' ' || b == '\n' || b == '\r' || b == '\t' {
			continue
		}
		return b, br.UnreadByte()
	}
}

func parseJSONArray(r io.Reader, emit func(*streamChunk) error) error {
	dec := json.NewDecoder(r)
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	for dec.More() {
		var c streamChunk
		if err := dec.Decode(&c); err != nil {
			return fmt.Errorf("failed to decode stream chunk: %w", err)
		}
		if err := emit(&c); err != nil {
			return err
		}
	}
	return nil
}

func parseJSONObjects(r io.Reader, emit func(*streamChunk) error) error {
	dec := json.NewDecoder(r)
	for {
		var c streamChunk
		err := dec.Decode(&c)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to decode stream chunk: %w", err)
		}
		if err := emit(&c); err != nil {
			return err
		}
	}
}

func parseSSE(r io.Reader, emit func(*streamChunk) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		data, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			continue
		}
		data = bytes.TrimSpace(data)
		if len(data) == 0 || string(data) == "[DONE]" {
			continue
		}
		var c streamChunk
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("failed to decode stream chunk: %w", err)
		}
		if err := emit(&c); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	return nil
}

func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

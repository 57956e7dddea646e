package docker

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"

	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/melih/dirg/internal/core/domain"
)

// messages decodes the JSON message stream the engine answers pull and build
// requests with.
type messages struct {
	body io.ReadCloser
	dec  *json.Decoder
	op   string
	name string
}

func newMessages(body io.ReadCloser, op, name string) *messages {
	return &messages{body: body, dec: json.NewDecoder(body), op: op, name: name}
}

func (m *messages) next() (jsonmessage.JSONMessage, error) {
	var msg jsonmessage.JSONMessage
	if err := m.dec.Decode(&msg); err != nil {
		if errors.Is(err, io.EOF) {
			return msg, io.EOF
		}
		return msg, wrap(m.op, m.name, err)
	}
	if msg.Error != nil {
		return msg, wrap(m.op, m.name, msg.Error)
	}
	return msg, nil
}

type progressStream struct {
	messages *messages
}

func (s *progressStream) Next() (domain.Progress, error) {
	msg, err := s.messages.next()
	if err != nil {
		return domain.Progress{}, err
	}
	p := domain.Progress{ID: msg.ID, Status: msg.Status}
	if msg.Progress != nil {
		p.Progress = msg.Progress.String()
	}
	return p, nil
}

func (s *progressStream) Close() error {
	return s.messages.body.Close()
}

type buildStream struct {
	messages *messages
	context  io.Closer
}

func (s *buildStream) Next() (domain.BuildLine, error) {
	for {
		msg, err := s.messages.next()
		if err != nil {
			return domain.BuildLine{}, err
		}
		switch {
		case msg.Stream != "":
			return domain.BuildLine{Text: msg.Stream}, nil
		case msg.Status != "":
			return domain.BuildLine{Text: msg.Status + "\n"}, nil
		}
		// aux messages carry the image id only
	}
}

func (s *buildStream) Close() error {
	s.context.Close()
	return s.messages.body.Close()
}

// logStream demultiplexes the stdout/stderr framing of a log response into
// lines.
type logStream struct {
	body    io.ReadCloser
	pipe    *io.PipeReader
	scanner *bufio.Scanner
	name    string
}

func newLogStream(body io.ReadCloser, name string) *logStream {
	pr, pw := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, body)
		pw.CloseWithError(err)
	}()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &logStream{body: body, pipe: pr, scanner: scanner, name: name}
}

func (s *logStream) Next() (domain.LogLine, error) {
	if s.scanner.Scan() {
		return domain.LogLine{Text: s.scanner.Text()}, nil
	}
	if err := s.scanner.Err(); err != nil {
		return domain.LogLine{}, wrap("logs", s.name, err)
	}
	return domain.LogLine{}, io.EOF
}

func (s *logStream) Close() error {
	err := s.body.Close()
	s.pipe.Close()
	return err
}

type statsStream struct {
	body io.ReadCloser
	dec  *json.Decoder
	name string
}

func newStatsStream(body io.ReadCloser, name string) *statsStream {
	return &statsStream{body: body, dec: json.NewDecoder(body), name: name}
}

func (s *statsStream) Next() (domain.CPUStats, error) {
	var sample struct {
		CPUStats domain.CPUStats `json:"cpu_stats"`
	}
	if err := s.dec.Decode(&sample); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.CPUStats{}, io.EOF
		}
		return domain.CPUStats{}, wrap("stats", s.name, err)
	}
	return sample.CPUStats, nil
}

func (s *statsStream) Close() error {
	return s.body.Close()
}

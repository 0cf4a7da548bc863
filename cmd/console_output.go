package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// ConsoleWriter renders zerolog's JSON events as colored console lines
type ConsoleWriter struct {
	out    io.Writer
	debug  bool
	buffer strings.Builder
	lock   sync.Mutex
}

func NewConsoleWriter(out io.Writer, debug bool) *ConsoleWriter {
	return &ConsoleWriter{out: out, debug: debug}
}

func (w *ConsoleWriter) Write(p []byte) (n int, err error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	var evt map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(p))
	d.UseNumber()
	err = d.Decode(&evt)
	if err != nil {
		return n, eris.Wrapf(err, "cannot decode event: %s", p)
	}

	w.buffer.Reset()
	switch evt["level"] {
	case "fatal":
		fallthrough
	case "error":
		w.buffer.WriteString("[red]")
	case "warn":
		w.buffer.WriteString("[yellow]")
	case "debug":
		fallthrough
	case "trace":
		w.buffer.WriteString("[blue]")
	default:
		w.buffer.WriteString("[green]")
	}

	if target, ok := evt["target"].(string); ok {
		w.buffer.WriteString(target + ": ")
	}

	if evt["level"] == "error" {
		w.buffer.WriteString("Error: ")
	}

	if isCommand, _ := evt["command"].(bool); isCommand {
		w.buffer.WriteString("$ ")
	}

	msg, _ := evt["message"].(string)
	if dir, ok := evt["dir"].(string); ok {
		// simplify the path
		relPath, err := filepath.Rel(".", dir)
		if err == nil {
			msg = strings.ReplaceAll(msg, dir, relPath)
		}
	}
	w.buffer.WriteString(msg)

	if stderr, ok := evt["stderr"].(string); ok {
		w.buffer.WriteString("\n")
		w.buffer.WriteString(strings.TrimRight(stderr, "\n"))
	}

	if errorDetails, ok := evt["error"].(string); ok {
		w.buffer.WriteString("\n")
		w.buffer.WriteString(errorDetails)
	}

	if w.debug {
		names := make([]string, 0, len(evt))
		for name := range evt {
			names = append(names, name)
		}
		sort.Strings(names)

		w.buffer.WriteString("\n")
		for _, name := range names {
			w.buffer.WriteString(fmt.Sprintf("  %s: %+v\n", name, evt[name]))
		}
	}

	w.buffer.WriteString("[reset]\n")
	_, err = colorstring.Fprint(w.out, w.buffer.String())
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func setErrorMarshaler(debug bool) {
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		return eris.ToString(err, debug)
	}
}

package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/docopt/docopt-go"

	"ghcodec-svr/internal/codec"
	"ghcodec-svr/internal/export"
)

const usage = `ghdump decodes GH (codec 7) AVL frames given as hex.

Usage:
  ghdump [--packet] [--json] [--gpx=<file>] [--name=<name>] <hex>...
  ghdump [--packet] [--json] [--gpx=<file>] [--name=<name>] --stdin
  ghdump -h | --help

Options:
  -h --help      Show this screen.
  --packet       Input is a whole TCP packet (preamble, length, CRC).
  --json         Print records as JSON lines.
  --gpx=<file>   Also write the decoded track as GPX.
  --name=<name>  Track name for the GPX output [default: ghdump].
  --stdin        Read hex frames from stdin, one per line.
`

type options struct {
	Packet bool     `docopt:"--packet"`
	JSON   bool     `docopt:"--json"`
	GPX    string   `docopt:"--gpx"`
	Name   string   `docopt:"--name"`
	Stdin  bool     `docopt:"--stdin"`
	Hex    []string `docopt:"<hex>"`
}

func main() {
	args, err := docopt.ParseDoc(usage)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	var opts options
	if err := args.Bind(&opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ghdump:", err)
		os.Exit(1)
	}
}

func run(opts options, stdin io.Reader, stdout io.Writer) error {
	inputs := opts.Hex
	if opts.Stdin {
		sc := bufio.NewScanner(stdin)
		sc.Buffer(make([]byte, 0, 64*1024), 4*codec.MaxPacketData)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				inputs = append(inputs, line)
			}
		}
		if err := sc.Err(); err != nil {
			return err
		}
	}

	var all []codec.Record
	enc := json.NewEncoder(stdout)
	for i, in := range inputs {
		recs, err := decodeHex(in, opts.Packet)
		if err != nil {
			return fmt.Errorf("input %d: %w", i+1, err)
		}
		for _, r := range recs {
			if opts.JSON {
				if err := enc.Encode(r); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(stdout, r.String())
			}
		}
		all = append(all, recs...)
	}

	if opts.GPX != "" {
		b, err := export.GPX(opts.Name, all)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.GPX, b, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// decodeHex acepta espacios y el prefijo 0x.
func decodeHex(s string, packet bool) ([]codec.Record, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.Join(strings.Fields(s), "")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if packet {
		payload, n, err := codec.ParsePacket(data)
		if err != nil {
			return nil, err
		}
		if n != len(data) {
			return nil, fmt.Errorf("%d trailing bytes after packet", len(data)-n)
		}
		data = payload
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	c, ok := codec.ForID(data[0])
	if !ok {
		return nil, fmt.Errorf("unsupported codec id 0x%02x", data[0])
	}
	return c.Decode(data)
}

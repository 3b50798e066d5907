package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mkyhq/glyphcaptcha/lib/challenge/challengetest"
	"github.com/mkyhq/glyphcaptcha/lib/policy/config"
	"github.com/mkyhq/glyphcaptcha/lib/render"
)

func TestMarshalConfigYAML(t *testing.T) {
	cfg := config.Default()
	cfg.Length = 4
	cfg.TextColor = config.RGB{10, 20, 30}

	output, err := marshalConfig(&cfg, "YAML")
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(output, &doc); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, output)
	}

	for _, key := range []string{"length", "width", "height", "characters", "session_key", "expire", "text_color", "store"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("key %q missing from output", key)
		}
	}

	if got := doc["length"]; got != 4 {
		t.Errorf("wanted length 4, got: %v", got)
	}

	color, ok := doc["text_color"].([]any)
	if !ok || len(color) != 3 || color[0] != 10 {
		t.Errorf("text_color should be a three element list, got: %#v", doc["text_color"])
	}

	if _, ok := doc["font_path"]; ok {
		t.Error("empty font_path should be left out")
	}
}

func TestMarshalConfigRoundTrip(t *testing.T) {
	for _, format := range []string{"yaml", "json"} {
		t.Run(format, func(t *testing.T) {
			cfg := config.Default()
			cfg.Characters = "AB12"
			cfg.AudioEnabled = false
			cfg.AngleMin = -30

			output, err := marshalConfig(&cfg, format)
			if err != nil {
				t.Fatal(err)
			}

			got, err := config.Load(bytes.NewReader(output), format)
			if err != nil {
				t.Fatalf("can't load dumped config: %v\n%s", err, output)
			}

			if got.Characters != "AB12" || got.AudioEnabled || got.AngleMin != -30 {
				t.Errorf("values lost in round trip: %+v", got)
			}

			if got.Store == nil || got.Store.Backend != "memory" {
				t.Errorf("store lost in round trip: %+v", got.Store)
			}
		})
	}
}

func TestMarshalConfigJSONIsIndented(t *testing.T) {
	cfg := config.Default()

	output, err := marshalConfig(&cfg, "json")
	if err != nil {
		t.Fatal(err)
	}

	if !json.Valid(output) {
		t.Fatalf("output is not valid JSON:\n%s", output)
	}

	if !strings.Contains(string(output), "\n  \"length\": 6") {
		t.Errorf("output is not indented:\n%s", output)
	}
}

func TestMarshalConfigBadFormat(t *testing.T) {
	cfg := config.Default()

	if _, err := marshalConfig(&cfg, "toml"); err == nil {
		t.Fatal("wanted an error for an unknown format")
	}
}

func TestRenderSamples(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "samples")

	cfg := config.Default()
	cfg.Width = 120
	cfg.Height = 40

	written, err := renderSamples(render.New(), cfg, 3, dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(written) != 3 {
		t.Fatalf("wanted 3 samples, got: %v", written)
	}

	for _, fname := range written {
		fin, err := os.Open(fname)
		if err != nil {
			t.Fatal(err)
		}

		img, err := png.Decode(fin)
		fin.Close()
		if err != nil {
			t.Fatalf("%s is not a PNG: %v", fname, err)
		}

		if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 40 {
			t.Errorf("%s has the wrong size: %v", fname, b)
		}
	}
}

func TestRenderSamplesFailure(t *testing.T) {
	rend := &challengetest.Renderer{Err: errors.New("out of ink")}

	written, err := renderSamples(rend, config.Default(), 2, t.TempDir())
	if err == nil {
		t.Fatal("wanted an error")
	}

	if len(written) != 0 {
		t.Errorf("nothing should be written, got: %v", written)
	}
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"

	libcaptcha "github.com/mkyhq/glyphcaptcha/lib"
	"github.com/mkyhq/glyphcaptcha/lib/challenge"
	"github.com/mkyhq/glyphcaptcha/lib/policy/config"
	"github.com/mkyhq/glyphcaptcha/lib/render"
)

var (
	configFname  = flag.String("config", "", "path to a captcha config document (defaults to the built-in one)")
	outputFile   = flag.String("output", "", "output file path for the effective config (use - for stdout, defaults to stdout)")
	outputFormat = flag.String("format", "yaml", "output format: yaml or json")
	samples      = flag.Int("samples", 0, "if > 0, render this many sample images")
	outDir       = flag.String("out-dir", ".", "directory sample images are written to")
	quiet        = flag.Bool("quiet", false, "only check the config, don't print it")
	helpFlag     = flag.Bool("help", false, "show help")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s [options]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nExamples:")
		fmt.Fprintln(os.Stderr, "  # Print the built-in config with every default filled in")
		fmt.Fprintln(os.Stderr, "  captchactl")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "  # Check a config file and show what it resolves to as JSON")
		fmt.Fprintln(os.Stderr, "  captchactl -config captcha.yaml -format json")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "  # Render five images with the colors and noise from a config file")
		fmt.Fprintln(os.Stderr, "  captchactl -config captcha.yaml -quiet -samples 5 -out-dir /tmp/samples")
		os.Exit(2)
	}
}

func main() {
	flag.Parse()

	if len(flag.Args()) > 0 || *helpFlag {
		flag.Usage()
	}

	cfg, err := libcaptcha.LoadConfigOrDefault(*configFname)
	if err != nil {
		log.Fatalf("can't load config: %v", err)
	}

	if !*quiet {
		output, err := marshalConfig(cfg, *outputFormat)
		if err != nil {
			log.Fatal(err)
		}

		if *outputFile == "" || *outputFile == "-" {
			fmt.Print(string(output))
		} else {
			if err := os.WriteFile(*outputFile, output, 0o644); err != nil {
				log.Fatalf("failed to write output file: %v", err)
			}
			fmt.Printf("Effective config written to %s\n", *outputFile)
		}
	}

	if *samples > 0 {
		written, err := renderSamples(render.New(), *cfg, *samples, *outDir)
		if err != nil {
			log.Fatal(err)
		}

		for _, fname := range written {
			fmt.Fprintln(os.Stderr, fname)
		}
	}
}

func marshalConfig(cfg *config.Config, format string) ([]byte, error) {
	var output []byte
	var err error

	switch strings.ToLower(format) {
	case "yaml":
		output, err = yaml.Marshal(cfg)
	case "json":
		output, err = json.MarshalIndent(cfg, "", "  ")
		output = append(output, '\n')
	default:
		return nil, fmt.Errorf("unsupported output format: %s (use yaml or json)", format)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}

	return output, nil
}

// renderSamples draws n images with random codes into dir. File names carry
// the code so the images can be checked by eye.
func renderSamples(r challenge.Renderer, cfg config.Config, n int, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("can't create output directory: %w", err)
	}

	alphabet := cfg.Alphabet()
	result := make([]string, 0, n)

	for i := range n {
		code, err := challenge.GenerateCode(alphabet, cfg.Length)
		if err != nil {
			return result, err
		}

		img, err := r.Render(code, cfg)
		if err != nil {
			return result, fmt.Errorf("can't render sample %d: %w", i, err)
		}

		fname := filepath.Join(dir, fmt.Sprintf("sample-%03d-%s.png", i, code))
		if err := os.WriteFile(fname, img, 0o644); err != nil {
			return result, fmt.Errorf("can't write sample %d: %w", i, err)
		}

		result = append(result, fname)
	}

	return result, nil
}

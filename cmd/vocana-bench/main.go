// Command vocana-bench is a thin demo harness for the enhancement
// pipeline. It wires a deterministic mock model triple (no real ONNX
// runtime is included; see vocana.NativeBackend) and exposes two
// modes: a one-shot file-in/file-out conversion, and an HTTP server
// mirroring the original prototype's upload-a-WAV endpoint.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/keithah/vocana"
	"github.com/keithah/vocana/pkg/audio"
	"go.uber.org/zap"
)

const maxUploadSize = 50 << 20 // 50 MB

func main() {
	mode := flag.String("mode", "file", "operation mode: file or serve")
	in := flag.String("in", "", "input WAV path (file mode)")
	out := flag.String("out", "", "output WAV path (file mode)")
	port := flag.Int("port", 8080, "server port (serve mode)")
	flag.Parse()

	zlog, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer zlog.Sync()
	logging := vocana.NewLogging(zlog)

	cfg := vocana.DefaultConfig()
	pipeline := vocana.NewPipeline(cfg, demoModelTriple(cfg), logging, nil)

	switch *mode {
	case "file":
		if *in == "" || *out == "" {
			fmt.Fprintln(os.Stderr, "file mode requires -in and -out")
			os.Exit(2)
		}
		if err := runFile(pipeline, *in, *out); err != nil {
			zlog.Fatal("file mode failed", zap.Error(err))
		}
	case "serve":
		runServe(pipeline, *port, zlog)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want file or serve)\n", *mode)
		os.Exit(2)
	}
}

func runFile(p *vocana.Pipeline, inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	samples, sampleRate, err := audio.ReadWAV(data)
	if err != nil {
		return fmt.Errorf("decode wav: %w", err)
	}
	cleaned, err := p.ProcessBuffer(samples)
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}
	encoded := audio.WriteWAV(cleaned, sampleRate)
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func runServe(p *vocana.Pipeline, port int, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/denoise", handleDenoise(p, logger))

	addr := fmt.Sprintf(":%d", port)
	logger.Info("vocana-bench listening", zap.String("addr", addr))
	logger.Fatal("server exited", zap.Error(http.ListenAndServe(addr, corsMiddleware(mux))))
}

// corsMiddleware adds permissive CORS headers so a local dev frontend
// can call the endpoint directly, matching the original prototype.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleDenoise handles POST /denoise: a multipart "file" field holding
// a WAV upload, returned as an enhanced WAV response.
func handleDenoise(p *vocana.Pipeline, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			logger.Warn("denoise: failed to parse form", zap.Error(err))
			http.Error(w, "failed to parse upload", http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			logger.Warn("denoise: no file in request", zap.Error(err))
			http.Error(w, "no file uploaded", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			logger.Error("denoise: failed to read file", zap.Error(err))
			http.Error(w, "failed to read file", http.StatusInternalServerError)
			return
		}

		samples, sampleRate, err := audio.ReadWAV(data)
		if err != nil {
			logger.Warn("denoise: invalid wav", zap.Error(err))
			http.Error(w, "invalid WAV file: "+err.Error(), http.StatusBadRequest)
			return
		}

		logger.Info("denoise: received upload",
			zap.Int("samples", len(samples)), zap.Int("sample_rate", sampleRate))

		cleaned, err := p.ProcessBuffer(samples)
		if err != nil {
			logger.Error("denoise: processing failed", zap.Error(err))
			http.Error(w, "processing failed: "+err.Error(), http.StatusUnprocessableEntity)
			return
		}

		result := audio.WriteWAV(cleaned, sampleRate)
		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Content-Disposition", `attachment; filename="cleaned.wav"`)
		w.Write(result)
	}
}

// demoModelTriple builds a deterministic, non-learned model triple:
// the ERB decoder reports a unit gain mask (pass-through) and the deep
// filter decoder reports an identity FIR (center tap 1, all others 0),
// so the demo pipeline round-trips audio unchanged end to end while
// still exercising every stage of the real pipeline.
func demoModelTriple(cfg vocana.Config) vocana.ModelTriple {
	k := cfg.Bins()
	encOutputs := append([]string(nil), vocana.EncoderStateKeys...)

	encoder := vocana.NewMockBackend(
		[]string{"erb_feat", "spec_feat"},
		encOutputs,
		0,
		func(name string, inputs map[string]vocana.Tensor) []int64 {
			t := inputs["erb_feat"].Shape[2]
			return []int64{1, t, 1}
		},
	)

	erbDec := vocana.NewMockBackend(
		vocana.EncoderStateKeys,
		[]string{"m"},
		1,
		func(name string, inputs map[string]vocana.Tensor) []int64 {
			t := inputs["e0"].Shape[1]
			return []int64{1, 1, t, int64(k)}
		},
	)

	dfDec := identityDFBackend{bands: cfg.DFBands, order: cfg.DFOrder}

	return vocana.ModelTriple{Encoder: encoder, ERBDec: erbDec, DFDec: dfDec}
}

// identityDFBackend is a hand-written InferenceBackend (rather than a
// MockBackend) because the deep-filter identity response needs a
// specific non-constant tap pattern per frame/band, not a single fill
// value.
type identityDFBackend struct {
	bands, order int
}

func (b identityDFBackend) InputNames() []string  { return vocana.EncoderStateKeys }
func (b identityDFBackend) OutputNames() []string { return []string{"coefs"} }

func (b identityDFBackend) Run(inputs map[string]vocana.Tensor) (map[string]vocana.Tensor, error) {
	e0, ok := inputs["e0"]
	if !ok || len(e0.Shape) < 2 {
		return nil, fmt.Errorf("identity_df_backend: missing or malformed e0 input")
	}
	t := int(e0.Shape[1])
	center := b.order / 2
	data := make([]float32, t*b.bands*b.order)
	for frameBand := 0; frameBand < t*b.bands; frameBand++ {
		data[frameBand*b.order+center] = 1
	}
	return map[string]vocana.Tensor{
		"coefs": {Shape: []int64{int64(t), int64(b.bands), int64(b.order)}, Data: data},
	}, nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beanbocchi/genestack/internal/testserver"
	"github.com/beanbocchi/genestack/internal/utils/blake3"
	"github.com/beanbocchi/genestack/pkg/sdk"
)

const (
	email    = "bench@example.com"
	password = "bench"
)

// Uploads a file to an in-process server at several server-side chunk sizes
// and reports throughput and hop counts.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./example/benchmark <filename>")
		fmt.Println("Example: go run ./example/benchmark /path/to/reads.fastq")
		os.Exit(1)
	}

	filename := os.Args[1]

	info, err := os.Stat(filename)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	digest, err := blake3.ComputeFile(filename)
	if err != nil {
		fmt.Printf("Error hashing file: %v\n", err)
		os.Exit(1)
	}

	fileSize := info.Size()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("Upload Benchmark")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("File: %s\n", filename)
	fmt.Printf("Size: %s (%d bytes)\n", formatSize(fileSize), fileSize)
	fmt.Printf("BLAKE3: %s\n", digest)
	fmt.Println()

	fmt.Printf("%-12s %8s %15s %15s %s\n", "Chunk", "Hops", "Time", "Throughput", "Digest")
	fmt.Println(strings.Repeat("-", 70))

	for _, chunkSize := range []int64{0, 64 << 20, 8 << 20, 1 << 20} {
		hops, duration, serverDigest, err := benchmarkUpload(filename, chunkSize)
		if err != nil {
			fmt.Printf("Error uploading with chunk %d: %v\n", chunkSize, err)
			os.Exit(1)
		}
		match := "ok"
		if serverDigest != digest {
			match = "MISMATCH"
		}
		printResult(chunkSize, hops, duration, fileSize, match)
	}
}

func benchmarkUpload(filename string, chunkSize int64) (int, time.Duration, string, error) {
	srv := testserver.Start(testserver.Options{
		Accounts:  map[string]string{email: password},
		Latest:    sdk.Version,
		ChunkSize: chunkSize,
	})
	defer srv.Close()

	session, err := sdk.NewSessionWithConfig(sdk.SessionConfig{
		ServerURL: srv.URL(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Progress:  func() sdk.ProgressReporter { return nopReporter{} },
	})
	if err != nil {
		return 0, 0, "", err
	}
	defer session.Close()

	ctx := context.Background()
	if _, err := session.Login(ctx, email, password); err != nil {
		return 0, 0, "", err
	}
	app, err := session.Application("genestack/upload")
	if err != nil {
		return 0, 0, "", err
	}

	hops := 1
	if chunkSize > 0 {
		info, err := os.Stat(filename)
		if err != nil {
			return 0, 0, "", err
		}
		hops = int((info.Size() + chunkSize - 1) / chunkSize)
	}

	start := time.Now()
	result, err := app.UploadFile(ctx, filename, srv.IssueToken(app.ID()))
	elapsed := time.Since(start)
	if err != nil {
		return 0, 0, "", err
	}

	object, _ := result.(map[string]any)
	serverDigest, _ := object["digest"].(string)
	if _, ok := srv.Upload(filepath.Base(filename)); !ok {
		return 0, 0, "", fmt.Errorf("server did not store %s", filename)
	}
	return hops, elapsed, serverDigest, nil
}

func printResult(chunkSize int64, hops int, duration time.Duration, fileSize int64, match string) {
	chunk := "whole"
	if chunkSize > 0 {
		chunk = formatSize(chunkSize)
	}
	throughput := float64(fileSize) / (1024 * 1024) / duration.Seconds()
	fmt.Printf("%-12s %8d %15s %10.2f MB/s %s\n",
		chunk,
		hops,
		duration.Round(time.Microsecond),
		throughput,
		match,
	)
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

type nopReporter struct{}

func (nopReporter) Report(string, int64, int64) {}

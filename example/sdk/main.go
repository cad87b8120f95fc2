package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/beanbocchi/genestack/internal/testserver"
	"github.com/beanbocchi/genestack/pkg/sdk"
)

func main() {
	// In-process server standing in for a Genestack endpoint.
	srv := testserver.Start(testserver.Options{
		Accounts:   map[string]string{"alice@example.com": "secret"},
		Latest:     "1.0.0",
		Compatible: sdk.Version,
		ChunkSize:  16,
	})
	defer srv.Close()
	srv.Handle("genestack/files", "describe", func(c echo.Context, params []any) (any, error) {
		return map[string]any{"accession": params[0], "kind": "raw reads"}, nil
	})

	ctx := context.Background()
	session, err := sdk.NewSession(srv.URL())
	if err != nil {
		fmt.Printf("Session failed: %v\n", err)
		return
	}
	defer session.Close()

	// Login
	notice, err := session.Login(ctx, "alice@example.com", "secret")
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		return
	}
	if notice != "" {
		fmt.Println(notice)
	}

	email, err := session.WhoAmI(ctx)
	if err != nil {
		fmt.Printf("Whoami failed: %v\n", err)
		return
	}
	fmt.Printf("Logged in as %s\n", email)

	// Invoke
	files, err := session.Application("genestack/files")
	if err != nil {
		fmt.Printf("Application failed: %v\n", err)
		return
	}
	description, err := files.Invoke(ctx, "describe", "GSF000001")
	if err != nil {
		fmt.Printf("Invoke failed: %v\n", err)
		return
	}
	fmt.Printf("Described: %v\n", description)

	// Upload
	dir, err := os.MkdirTemp("", "genestack-example")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "reads.fastq")
	if err := os.WriteFile(path, []byte("@r1\nACGTACGTACGT\n+\nIIIIIIIIIIII\n@r2\nTTGCA\n+\nIIIII\n"), 0o644); err != nil {
		fmt.Printf("Failed to write file: %v\n", err)
		return
	}

	uploads, err := session.Application("genestack/upload")
	if err != nil {
		fmt.Printf("Application failed: %v\n", err)
		return
	}
	result, err := uploads.UploadFile(ctx, path, srv.IssueToken(uploads.ID()))
	if err != nil {
		fmt.Printf("Upload failed: %v\n", err)
		return
	}
	fmt.Printf("Upload successful: %v\n", result)
}

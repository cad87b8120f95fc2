package sdk_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/beanbocchi/genestack/internal/testserver"
	"github.com/beanbocchi/genestack/pkg/sdk"
)

func ExampleSession_Login() {
	srv := testserver.Start(testserver.Options{
		Accounts:   map[string]string{"alice@example.com": "secret"},
		Latest:     "2.0.0",
		Compatible: "1.0.0",
	})
	defer srv.Close()

	session, err := sdk.NewSessionWithConfig(sdk.SessionConfig{
		ServerURL:     srv.URL(),
		ClientVersion: "1.5.0",
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	defer session.Close()

	notice, err := session.Login(context.Background(), "alice@example.com", "secret")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(notice)

	email, err := session.WhoAmI(context.Background())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(email)
	// Output:
	// Newer version "2.0.0" available, please update.
	// alice@example.com
}

func ExampleApplication_Invoke() {
	srv := testserver.Start(testserver.Options{})
	defer srv.Close()
	srv.Handle("genestack/files", "count", func(c echo.Context, params []any) (any, error) {
		return map[string]any{"folder": params[0], "count": 3}, nil
	})

	session, err := sdk.NewSession(srv.URL())
	if err != nil {
		fmt.Println(err)
		return
	}
	app, err := session.Application("genestack/files")
	if err != nil {
		fmt.Println(err)
		return
	}

	var out struct {
		Folder string `json:"folder"`
		Count  int    `json:"count"`
	}
	if err := app.InvokeInto(context.Background(), &out, "count", "GSF000100"); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%s holds %d files\n", out.Folder, out.Count)
	// Output: GSF000100 holds 3 files
}

func ExampleApplication_UploadFile() {
	srv := testserver.Start(testserver.Options{
		Accounts:  map[string]string{"alice@example.com": "secret"},
		Latest:    sdk.Version,
		ChunkSize: 4,
	})
	defer srv.Close()

	dir, err := os.MkdirTemp("", "upload")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "reads.fastq")
	if err := os.WriteFile(path, []byte("@r1\nACGT\n+\nIIII\n"), 0o644); err != nil {
		fmt.Println(err)
		return
	}

	session, err := sdk.NewSessionWithConfig(sdk.SessionConfig{
		ServerURL: srv.URL(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Progress:  func() sdk.ProgressReporter { return nopReporter{} },
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx := context.Background()
	if _, err := session.Login(ctx, "alice@example.com", "secret"); err != nil {
		fmt.Println(err)
		return
	}

	app, err := session.Application("genestack/upload")
	if err != nil {
		fmt.Println(err)
		return
	}
	result, err := app.UploadFile(ctx, path, srv.IssueToken(app.ID()))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(result.(map[string]any)["size"])
	// Output: 16
}

type nopReporter struct{}

func (nopReporter) Report(string, int64, int64) {}

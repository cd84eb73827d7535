package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/switchboard-dev/switchboard/internal"
	"github.com/switchboard-dev/switchboard/internal/config"
	"github.com/switchboard-dev/switchboard/mcp"
	"github.com/switchboard-dev/switchboard/mcphost"
	"github.com/switchboard-dev/switchboard/openapi"
)

var rootCmd = &cobra.Command{
	Use:   "switchboard [spec-path-or-url]",
	Short: "An MCP server for a given OpenAPI specification",
	Long: `switchboard turns any OpenAPI specification into a set of callable tools and
serves them over the MCP stdio transport. It reads JSON-RPC requests from
stdin, makes the corresponding API calls, and writes JSON-RPC responses to
stdout.

The spec-path-or-url argument can be:
- A local file path
- An HTTP(S) URL
- "-" to read from stdin

Header and auth values may be 1Password secret references (op://vault/item/field).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		if !verbose {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}

		g.Go(func() error {
			headers, err := resolveHeaders(ctx)
			if err != nil {
				return err
			}

			client := newClient(logger, headers)

			specData, rpcInput, err := loadSpec(ctx, args[0], client, logger)
			if err != nil {
				return err
			}

			filter, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}

			opts := []openapi.ServerOption{
				openapi.WithSpecData(specData),
				openapi.WithClient(client),
				openapi.WithLogger(logger),
				openapi.WithTimeout(timeout),
				openapi.WithFilter(filter),
			}
			if serverName != "" {
				opts = append(opts, openapi.WithName(serverName))
			}
			if baseURL != "" {
				opts = append(opts, openapi.WithBaseURL(baseURL))
			}
			if insecure {
				opts = append(opts, openapi.WithInsecureTLS())
			}
			for key, values := range headers {
				for _, value := range values {
					opts = append(opts, openapi.WithHeader(key, value))
				}
			}

			api, err := openapi.NewServer(opts...)
			if err != nil {
				return fmt.Errorf("error creating server: %w", err)
			}
			if !api.Usable() {
				logger.Warn("spec describes no callable tools; nothing to serve")
				return nil
			}

			docVersion := api.Version()
			if docVersion == "" {
				docVersion = "dev"
			}

			switch hostKind {
			case "sdk":
				host := mcphost.New(api.Name(), docVersion)
				if err := api.Mount(host); err != nil {
					return err
				}
				logger.Info("serving via official SDK host", "tools", len(api.Tools()))
				return host.Run(ctx)
			case "builtin":
				server := mcp.NewServer(
					mcp.WithServerInfo(api.Name(), docVersion),
					mcp.WithLogger(logger),
				)
				server.Mount(api)

				logger.Info("serving via builtin host", "tools", len(api.Tools()))
				transport := mcp.NewStdioTransport(rpcInput, os.Stdout, os.Stderr)
				return transport.Run(ctx, server)
			default:
				return fmt.Errorf("unknown host %q: expected builtin or sdk", hostKind)
			}
		})

		err := g.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

// newClient builds the upstream HTTP client: retries with backoff, an
// optional requests-per-second floor, and default header injection. All
// resilience policy lives here, outside the executor.
func newClient(logger *slog.Logger, headers http.Header) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retries
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.HTTPClient.Timeout = timeout
	retryClient.Logger = logger

	if rps > 0 {
		retryClient.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
			// wait at least 1/rps between requests
			minWait := time.Second / time.Duration(rps)
			if min < minWait {
				min = minWait
			}
			return retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
		}
	}

	if len(headers) > 0 {
		retryClient.HTTPClient.Transport = &internal.HeaderTransport{
			Base:    retryClient.HTTPClient.Transport,
			Headers: headers,
		}
	}

	return retryClient.StandardClient()
}

// resolveHeaders assembles default headers from the --auth and --header
// flags, resolving any op:// secret references.
func resolveHeaders(ctx context.Context) (http.Header, error) {
	headers := http.Header{}

	if auth != "" {
		value, _, err := internal.ResolveSecretReference(ctx, auth)
		if err != nil {
			return nil, fmt.Errorf("error resolving auth value: %w", err)
		}
		headers.Set("Authorization", value)
	}

	for _, header := range extraHeaders {
		key, value, found := strings.Cut(header, ":")
		if !found {
			return nil, fmt.Errorf("invalid header %q: expected 'Key: Value'", header)
		}
		resolved, _, err := internal.ResolveSecretReference(ctx, strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("error resolving header %s: %w", key, err)
		}
		headers.Add(strings.TrimSpace(key), resolved)
	}

	return headers, nil
}

// loadSpec reads the OpenAPI document from a file, URL or stdin. When the
// spec comes from stdin, /dev/tty takes over as the RPC input stream.
func loadSpec(ctx context.Context, source string, client *http.Client, logger *slog.Logger) ([]byte, io.Reader, error) {
	var rpcInput io.Reader = os.Stdin

	switch {
	case source == "-":
		logger.Info("reading spec from stdin")

		tty, err := os.Open("/dev/tty")
		if err != nil {
			return nil, nil, fmt.Errorf("error opening /dev/tty: %w", err)
		}
		rpcInput = tty

		specData, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, nil, fmt.Errorf("error reading OpenAPI spec from stdin: %w", err)
		}
		return specData, rpcInput, nil

	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		logger.Info("reading spec from URL", "url", source)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("error creating request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("error downloading spec: %w", err)
		}
		defer resp.Body.Close()

		specData, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("error reading spec from %s: %w", source, err)
		}
		return specData, rpcInput, nil

	default:
		logger.Info("reading spec from file", "file", source)

		cleanPath := filepath.Clean(source)
		info, err := os.Stat(cleanPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil, fmt.Errorf("spec file does not exist: %s", cleanPath)
			}
			return nil, nil, fmt.Errorf("error accessing spec file %s: %w", cleanPath, err)
		}
		if info.IsDir() {
			return nil, nil, fmt.Errorf("specified path is a directory, not a file: %s", cleanPath)
		}
		if info.Size() > 100*1024*1024 {
			return nil, nil, fmt.Errorf("spec file too large (max 100MB): %s", cleanPath)
		}

		specData, err := os.ReadFile(cleanPath)
		if err != nil {
			return nil, nil, fmt.Errorf("error reading spec file %s: %w", cleanPath, err)
		}
		return specData, rpcInput, nil
	}
}

var (
	auth         string
	extraHeaders []string
	baseURL      string
	serverName   string
	configPath   string
	hostKind     string
	verbose      bool
	insecure     bool
	retries      int
	timeout      time.Duration
	rps          int

	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	rootCmd.Flags().StringVar(&auth, "auth", "", "Authorization header value (e.g. 'Bearer token123' or an op:// reference)")
	rootCmd.Flags().StringArrayVarP(&extraHeaders, "header", "H", nil, "Additional header sent on every call, as 'Key: Value' (repeatable)")
	rootCmd.Flags().StringVar(&baseURL, "base-url", "", "Override the base URL derived from the spec's servers entry")
	rootCmd.Flags().StringVar(&serverName, "name", "", "Server name used to namespace tool names (defaults to the spec title)")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML or JSON file disabling operations, endpoints or paths")
	rootCmd.Flags().StringVar(&hostKind, "host", "builtin", "Tool host implementation: builtin or sdk")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging to stderr")
	rootCmd.Flags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	rootCmd.Flags().IntVar(&retries, "retries", 3, "Maximum number of retries for failed requests")
	rootCmd.Flags().DurationVar(&timeout, "timeout", openapi.DefaultTimeout, "HTTP request timeout")
	rootCmd.Flags().IntVarP(&rps, "rps", "r", 0, "Maximum requests per second (0 for no limit)")

	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built at: %s)", version, commit, date)
}

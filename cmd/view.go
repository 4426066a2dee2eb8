package cmd

import (
	"errors"
	"fmt"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/msalah0e/kgx/internal/explorer"
	"github.com/msalah0e/kgx/internal/ui"
	"github.com/msalah0e/kgx/internal/viewer"
)

func viewCmd() *cobra.Command {
	var (
		addr   string
		noOpen bool
	)

	cmd := &cobra.Command{
		Use:   "view [text]",
		Short: "Open the interactive graph viewer in a browser",
		Long: `Start a local viewer server. Click a node to expand its associations, drag
nodes to pin them while dragging, scroll to zoom, and type a question into
the query box. An optional text argument runs as the first query.`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sess, release, err := newSession(ctx, true)
			if err != nil {
				fail("%v", err)
			}
			defer release()

			if !verboseMode {
				gin.SetMode(gin.ReleaseMode)
			}
			var chat viewer.Chatter
			if c, err := newClient(); err == nil {
				chat = c
			}
			if addr == "" {
				addr = cfg.Viewer.Addr
			}
			srv := viewer.New(viewer.Options{
				Session:      sess,
				Chat:         chat,
				Title:        "kgx",
				Layout:       cfg.LayoutParams(),
				AllowOrigins: cfg.Viewer.AllowOrigins,
				Logger:       log,
			})

			if len(args) > 0 {
				text := strings.Join(args, " ")
				go func() {
					if err := sess.Query(ctx, text); err != nil && !errors.Is(err, explorer.ErrNothingFound) {
						log.Warn("initial query failed", "text", text, "error", err)
					}
				}()
			}

			url := "http://" + addr
			ui.Banner("viewer")
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-8s", "Serving"), url)
			ui.Subtle.Println("  Press Ctrl+C to stop")
			if cfg.Viewer.Open && !noOpen {
				openBrowser(url)
			}

			if err := srv.ListenAndServe(ctx, addr); err != nil {
				fail("Viewer failed: %v", err)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&noOpen, "no-open", false, "Do not open a browser")
	return cmd
}

func openBrowser(url string) {
	var openCmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		openCmd = exec.Command("open", url)
	case "linux":
		openCmd = exec.Command("xdg-open", url)
	default:
		openCmd = exec.Command("cmd", "/c", "start", url)
	}
	if err := openCmd.Start(); err != nil {
		log.Debug("opening browser failed", "error", err)
	}
}

package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/yourusername/mediafetch-go/api/handlers"
	"github.com/yourusername/mediafetch-go/internal/domain"
)

var (
	serverURL   string
	configPath  string
	noAutoStart bool
	verbose     bool
	rootCmd     = &cobra.Command{
		Use:           "mediafetch",
		Short:         "mediafetch - video and audio downloads through yt-dlp",
		Long:          `A command-line interface for queueing downloads on a mediafetch server or running them locally.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(addCmd, listCmd, statsCmd, getCmd, cancelCmd, retryCmd, deleteCmd, logsCmd, statusCmd)
	rootCmd.AddCommand(fetchCmd, provisionCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Add a download to the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		payload := handlers.AddDownloadRequest{URL: args[0]}
		payload.Mode, _ = cmd.Flags().GetString("mode")
		payload.Quality, _ = cmd.Flags().GetString("quality")
		payload.Container, _ = cmd.Flags().GetString("container")
		payload.OutputTemplate, _ = cmd.Flags().GetString("output")

		var download domain.Download
		if err := apiRequest(http.MethodPost, "/api/v1/downloads", payload, &download); err != nil {
			return err
		}

		fmt.Printf("Download added\n")
		fmt.Printf("ID:     %s\n", download.ID)
		fmt.Printf("Status: %s\n", download.Status)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		query := url.Values{}
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			query.Set("status", status)
		}
		if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
			query.Set("mode", mode)
		}
		path := "/api/v1/downloads"
		if len(query) > 0 {
			path += "?" + query.Encode()
		}

		var downloads []domain.Download
		if err := apiRequest(http.MethodGet, path, nil, &downloads); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tMODE\tSTATUS\tFILE\tCREATED")
		for _, d := range downloads {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				truncate(d.ID, 8),
				truncate(d.URL, 40),
				d.Mode,
				d.Status,
				truncate(d.FileName, 30),
				d.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var stats domain.DownloadStats
		if err := apiRequest(http.MethodGet, "/api/v1/downloads/stats", nil, &stats); err != nil {
			return err
		}

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:      %d\n", stats.Total)
		fmt.Printf("  Queued:     %d\n", stats.Queued)
		fmt.Printf("  Processing: %d\n", stats.Processing)
		fmt.Printf("  Completed:  %d\n", stats.Completed)
		fmt.Printf("  Failed:     %d\n", stats.Failed)
		fmt.Printf("  Cancelled:  %d\n", stats.Cancelled)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get download details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var d domain.Download
		if err := apiRequest(http.MethodGet, "/api/v1/downloads/"+args[0], nil, &d); err != nil {
			return err
		}

		fmt.Printf("Download Details:\n")
		fmt.Printf("  ID:        %s\n", d.ID)
		fmt.Printf("  URL:       %s\n", d.URL)
		fmt.Printf("  Status:    %s\n", d.Status)
		fmt.Printf("  Mode:      %s\n", d.Mode)
		fmt.Printf("  Quality:   %s\n", d.Quality)
		fmt.Printf("  Container: %s\n", d.Container)
		fmt.Printf("  Created:   %s\n", d.CreatedAt.Format("2006-01-02 15:04:05"))
		if d.FileName != "" {
			fmt.Printf("  File:      %s\n", d.FileName)
		}
		if d.ExitCode != nil {
			fmt.Printf("  Exit code: %d\n", *d.ExitCode)
		}
		if d.ErrorMessage != "" {
			fmt.Printf("  Error:     %s\n", d.ErrorMessage)
		}
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a queued download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		if err := apiRequest(http.MethodPost, "/api/v1/downloads/"+args[0]+"/cancel", nil, nil); err != nil {
			return err
		}
		fmt.Println("Download cancelled")
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry [id]",
	Short: "Retry a failed download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		if err := apiRequest(http.MethodPost, "/api/v1/downloads/"+args[0]+"/retry", nil, nil); err != nil {
			return err
		}
		fmt.Println("Download queued for retry")
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a download record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		if err := apiRequest(http.MethodDelete, "/api/v1/downloads/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Println("Download deleted")
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [id]",
	Short: "Print the yt-dlp output of a download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var text string
		if err := apiRequest(http.MethodGet, "/api/v1/downloads/"+args[0]+"/logs", nil, &text); err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show binary provisioning and the current download",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var health handlers.HealthResponse
		if err := apiRequest(http.MethodGet, "/health", nil, &health); err != nil {
			return err
		}

		fmt.Printf("Server %s, queue running: %v\n", health.Version, health.Queue.Running)
		printProvisionStatus(health.Binaries)

		if follow, _ := cmd.Flags().GetBool("follow"); follow {
			return followProgress()
		}

		var state domain.ProgressState
		if err := apiRequest(http.MethodGet, "/api/v1/progress", nil, &state); err != nil {
			return err
		}
		if state.DownloadID == "" {
			fmt.Println("No download has run yet")
			return nil
		}
		fmt.Printf("Download %s: %s\n", state.DownloadID, state.StatusText)
		return nil
	},
}

// followProgress renders the server's progress stream until interrupted
func followProgress() error {
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/api/v1/progress/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to progress stream: %w", err)
	}
	defer conn.Close()

	renderer := newProgressRenderer(os.Stderr, verbose)
	for {
		var msg handlers.ProgressMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		renderer.Update(msg.State, msg.Line)
		if msg.State.Done || msg.State.Failed {
			renderer.Finish(msg.State)
		}
	}
}

func printProvisionStatus(status domain.ProvisionStatus) {
	switch {
	case status.Ready:
		fmt.Println("Binaries: ready")
	case status.TimedOut:
		fmt.Println("Binaries: missing, restart the server to retry")
	default:
		fmt.Println("Binaries: provisioning")
	}

	names := make([]string, 0, len(status.Binaries))
	for name := range status.Binaries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-12s %s\n", name, status.Binaries[name])
	}
	if status.LastError != "" {
		fmt.Printf("  last error: %s\n", status.LastError)
	}
}

func init() {
	addCmd.Flags().StringP("mode", "m", "", "Format mode (audio_video, video, audio)")
	addCmd.Flags().StringP("quality", "q", "", "Maximum video height (best, 1080, 720, 480)")
	addCmd.Flags().StringP("container", "c", "", "Container or audio codec")
	addCmd.Flags().StringP("output", "o", "", "yt-dlp output template")
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	listCmd.Flags().StringP("mode", "m", "", "Filter by format mode")
	statusCmd.Flags().BoolP("follow", "f", false, "Stream progress of the current download")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/gdrive-go/internal/gdrive"
	"github.com/tonimelisma/gdrive-go/internal/library"
)

// Channel lifecycle timing.
const (
	channelRenewBefore = 5 * time.Minute
	channelStopTimeout = 10 * time.Second
	serverReadTimeout  = 30 * time.Second
	serverStopTimeout  = 5 * time.Second
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Receive Drive change notifications and keep the path cache fresh",
		Long: `Open a changes channel pointing at watch.address and serve notifications
on watch.listen. Every change or update notification clears the path cache so
the next lookup re-walks Drive. The channel is renewed before it expires and
stopped on exit.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
}

func newWatchFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch-file <library-path>",
		Short: "Receive notifications for a single file",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatchFile,
	}
}

func newStopChannelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop-channel <channel-id> <resource-id>",
		Short: "Stop a notification channel",
		Args:  cobra.ExactArgs(2),
		RunE:  runStopChannel,
	}
}

func newChangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "change <change-id>",
		Short: "Show one entry of the Drive change log",
		Args:  cobra.ExactArgs(1),
		RunE:  runChange,
	}
}

// channelOpener opens a notification channel for req.
type channelOpener func(ctx context.Context, req gdrive.ChannelRequest) (*gdrive.Channel, error)

func runWatch(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd)
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	ls, err := openLibrary(ctx, cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	onNotify := invalidateOnChange(ls.Store, cc.Logger, func(n gdrive.Notification) {
		printNotification(cc, n)
	})

	return serveChannel(ctx, cc, ls.Client, ls.Client.WatchChanges, onNotify)
}

func runWatchFile(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	ls, err := openLibrary(ctx, cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	dir, name := library.SplitPath(args[0])

	f, err := ls.Library.FindFile(ctx, dir, name)
	if err != nil {
		return err
	}

	open := func(ctx context.Context, req gdrive.ChannelRequest) (*gdrive.Channel, error) {
		return ls.Client.WatchFile(ctx, f.ID, req)
	}

	return serveChannel(ctx, cc, ls.Client, open, func(n gdrive.Notification) {
		printNotification(cc, n)
	})
}

func runStopChannel(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)

	ls, err := openLibrary(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	ls.Session.RefreshIfExpired(cmd.Context())

	if err := ls.Client.StopChannel(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}

	cc.Statusf("Stopped channel %s\n", args[0])

	return nil
}

// changeOutput is the JSON schema for `change --json`.
type changeOutput struct {
	ID       string `json:"id"`
	FileID   string `json:"file_id"`
	Deleted  bool   `json:"deleted"`
	Modified string `json:"modified,omitempty"`
	Title    string `json:"title,omitempty"`
}

func runChange(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)

	ls, err := openLibrary(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	ls.Session.RefreshIfExpired(cmd.Context())

	ch, ok := ls.Client.GetChange(cmd.Context(), args[0])
	if !ok {
		return fmt.Errorf("change %s not found", args[0])
	}

	out := changeOutput{ID: ch.ID, FileID: ch.FileID, Deleted: ch.Deleted}
	if !ch.ModifiedAt.IsZero() {
		out.Modified = ch.ModifiedAt.UTC().Format(time.RFC3339)
	}

	if ch.File != nil {
		out.Title = ch.File.Title
	}

	if cc.JSON {
		return printJSON(os.Stdout, out)
	}

	fmt.Printf("Change:   %s\n", out.ID)
	fmt.Printf("File:     %s %s\n", out.FileID, out.Title)
	fmt.Printf("Deleted:  %t\n", out.Deleted)
	fmt.Printf("Modified: %s\n", formatTime(ch.ModifiedAt))

	return nil
}

// cacheInvalidator is the part of the path cache the watcher touches.
type cacheInvalidator interface {
	InvalidateAll(ctx context.Context) (int64, error)
}

// invalidateOnChange returns a notification callback that clears the path
// cache on change and update messages, then calls next.
func invalidateOnChange(store cacheInvalidator, logger *slog.Logger, next func(gdrive.Notification)) func(gdrive.Notification) {
	return func(n gdrive.Notification) {
		switch n.ResourceState {
		case gdrive.StateChange, gdrive.StateUpdate:
			if _, err := store.InvalidateAll(context.Background()); err != nil {
				logger.Error("invalidating path cache failed", slog.String("error", err.Error()))
			}
		}

		if next != nil {
			next(n)
		}
	}
}

// notificationOutput is the JSON schema for one notification line. The
// channel token is left out.
type notificationOutput struct {
	ChannelID  string   `json:"channel_id"`
	ResourceID string   `json:"resource_id"`
	State      string   `json:"state"`
	Message    int64    `json:"message"`
	Changed    []string `json:"changed,omitempty"`
}

func printNotification(cc *CLIContext, n gdrive.Notification) {
	if cc.JSON {
		out := notificationOutput{
			ChannelID:  n.ChannelID,
			ResourceID: n.ResourceID,
			State:      n.ResourceState,
			Message:    n.MessageNumber,
			Changed:    n.Changed,
		}

		if err := printJSON(os.Stdout, out); err != nil {
			cc.Logger.Warn("writing notification failed", slog.String("error", err.Error()))
		}

		return
	}

	fmt.Printf("%s  %-7s  channel=%s resource=%s %s\n",
		time.Now().Format(time.TimeOnly), n.ResourceState, n.ChannelID, n.ResourceID, strings.Join(n.Changed, ","))
}

// serveChannel runs the notification receiver and keeps one channel open
// until ctx is canceled. The listener is bound before the channel is opened
// because Drive sends a sync message right away.
func serveChannel(ctx context.Context, cc *CLIContext, client *gdrive.Client, open channelOpener, onNotify func(gdrive.Notification)) error {
	cfg := cc.Cfg

	if cfg.WatchAddress == "" {
		return errors.New("watch.address is not configured (an https URL Drive can reach)")
	}

	ln, err := net.Listen("tcp", cfg.WatchListen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.WatchListen, err)
	}

	srv := &http.Server{
		Handler:           gdrive.NotificationHandler(cfg.WatchToken, cc.Logger, onNotify),
		ReadHeaderTimeout: serverReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("notification server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverStopTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return keepChannelOpen(gctx, cc, client, open)
	})

	cc.Logger.Info("notification receiver listening", slog.String("addr", ln.Addr().String()))

	return g.Wait()
}

// keepChannelOpen opens a channel, reopens it shortly before it expires, and
// stops the current one when ctx ends.
func keepChannelOpen(ctx context.Context, cc *CLIContext, client *gdrive.Client, open channelOpener) error {
	var current *gdrive.Channel

	defer func() {
		if current != nil {
			stopChannel(client, current, cc.Logger)
		}
	}()

	for {
		req := gdrive.ChannelRequest{
			ID:         uuid.NewString(),
			Address:    cc.Cfg.WatchAddress,
			Token:      cc.Cfg.WatchToken,
			Expiration: time.Now().Add(cc.Cfg.WatchTTL),
		}

		ch, err := open(ctx, req)
		if err != nil {
			return err
		}

		if current != nil {
			stopChannel(client, current, cc.Logger)
		}

		current = ch
		cc.Statusf("Channel %s open (resource %s)\n", ch.ID, ch.ResourceID)

		wait := renewalDelay(ch.Expiration, time.Now(), cc.Cfg.WatchTTL)

		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// renewalDelay returns how long to keep a channel before reopening it. Drive
// may shorten the requested expiration; without one the requested ttl is used.
func renewalDelay(expiration, now time.Time, ttl time.Duration) time.Duration {
	life := ttl
	if !expiration.IsZero() {
		life = expiration.Sub(now)
	}

	if life > 2*channelRenewBefore {
		return life - channelRenewBefore
	}

	return max(life/2, time.Second)
}

func stopChannel(client *gdrive.Client, ch *gdrive.Channel, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), channelStopTimeout)
	defer cancel()

	if err := client.StopChannel(ctx, ch.ID, ch.ResourceID); err != nil {
		logger.Warn("stopping channel failed",
			slog.String("channel_id", ch.ID),
			slog.String("error", err.Error()),
		)
	}
}

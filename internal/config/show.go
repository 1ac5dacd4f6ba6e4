package config

import (
	"fmt"
	"io"
	"strings"
)

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command, giving
// users visibility into the effective values after all override layers
// have been applied.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (%s)\n\n", r.ConfigPath)

	ew.printf("[library]\n")
	ew.printf("  library_dir       = %q\n", r.LibraryDir)
	ew.printf("  drive_folder      = %q\n", r.DriveFolder)
	ew.printf("  ignore            = [%s]\n", quoteList(r.Ignore))

	ew.printf("\n[auth]\n")
	ew.printf("  settings_file     = %q\n", r.SettingsFile)
	ew.printf("  credentials_file  = %q\n", r.CredentialsFile)
	ew.printf("  ready             = %t\n", Ready(r))

	ew.printf("\n[state]\n")
	ew.printf("  db_path           = %q\n", r.DBPath)

	ew.printf("\n[transfers]\n")
	ew.printf("  chunk_size        = %d\n", r.ChunkSize)
	ew.printf("  replace_files     = %t\n", r.ReplaceFiles)

	ew.printf("\n[watch]\n")
	ew.printf("  address           = %q\n", r.WatchAddress)
	ew.printf("  listen            = %q\n", r.WatchListen)
	ew.printf("  ttl               = %q\n", r.WatchTTL)
	ew.printf("  debounce          = %q\n", r.WatchDebounce)

	if r.WatchToken != "" {
		ew.printf("  token             = (set)\n")
	}

	ew.printf("\n[logging]\n")
	ew.printf("  log_level         = %q\n", r.LogLevel)
	ew.printf("  log_file          = %q\n", r.LogFile)
	ew.printf("  log_format        = %q\n", r.LogFormat)
	ew.printf("  log_retention_days = %d\n", r.LogRetentionDays)

	ew.printf("\n[network]\n")
	ew.printf("  connect_timeout   = %q\n", r.ConnectTimeout)
	ew.printf("  data_timeout      = %q\n", r.DataTimeout)
	ew.printf("  user_agent        = %q\n", r.UserAgent)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}

	return strings.Join(quoted, ", ")
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Traversal
	recursive      bool
	skipUnreadable bool
	showHidden     bool
	noIgnore       bool
	extensions     string
	textOnly       bool
	encodings      string

	// BOM handling
	dryRun     bool
	verbose    bool
	keepBackup bool
	backupExt  string

	// Output
	outputFormat    string
	outputFile      string
	copyToClipboard bool
	pdfOutputFile   string

	// Interactive Mode
	interactiveMode bool

	// Logging
	logLevel string
	logFile  string

	cfgFile   string
	logCloser io.Closer
)

// version is the application version, set via ldflags.
var version = "dev"

// errScanFailed makes the process exit non-zero once the report is out.
var errScanFailed = errors.New("scan finished with errors")

var rootCmd = &cobra.Command{
	Use:   "bomscan [PATHS...]",
	Short: "bomscan finds and strips byte-order marks from text files.",
	Long: `bomscan walks directories, files and Git repositories looking for files that
start with a UTF-8, UTF-16LE or UTF-16BE byte-order mark, and removes the mark
in place. The original is renamed to a backup before it is rewritten.`,
	Version:      version,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runScan,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/bomscan/config.toml)")

	// Traversal
	rootCmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "Descend into subdirectories")
	viper.BindPFlag("recursive", rootCmd.Flags().Lookup("recursive"))
	rootCmd.Flags().BoolVar(&skipUnreadable, "skip-unreadable", false, "Skip unreadable directories instead of aborting the scan")
	viper.BindPFlag("skip_unreadable", rootCmd.Flags().Lookup("skip-unreadable"))
	rootCmd.Flags().BoolVarP(&showHidden, "hidden", "H", false, "Check hidden files and directories")
	viper.BindPFlag("hidden", rootCmd.Flags().Lookup("hidden"))
	rootCmd.Flags().BoolVar(&noIgnore, "no-ignore", false, "Don't respect .gitignore files")
	viper.BindPFlag("no_ignore", rootCmd.Flags().Lookup("no-ignore"))
	rootCmd.Flags().StringVar(&extensions, "ext", "", "Only check these extensions (comma-separated, e.g. txt,md,csv)")
	viper.BindPFlag("ext", rootCmd.Flags().Lookup("ext"))
	rootCmd.Flags().BoolVar(&textOnly, "text-only", false, "Only check files known to languages.yml")
	viper.BindPFlag("text_only", rootCmd.Flags().Lookup("text-only"))
	rootCmd.Flags().StringVar(&encodings, "encodings", "", "Only look for these marks (comma-separated: utf-8,utf-16le,utf-16be)")
	viper.BindPFlag("encodings", rootCmd.Flags().Lookup("encodings"))

	// BOM handling
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report BOMs without modifying any file")
	viper.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also report files without a BOM and files too small to check")
	viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))
	rootCmd.Flags().BoolVar(&keepBackup, "keep-backup", true, "Keep the backup of each stripped file")
	viper.BindPFlag("keep_backup", rootCmd.Flags().Lookup("keep-backup"))
	rootCmd.Flags().StringVar(&backupExt, "backup-ext", ".bak", "Suffix appended to a file name to form its backup name")
	viper.BindPFlag("backup_ext", rootCmd.Flags().Lookup("backup-ext"))

	// Output
	rootCmd.Flags().StringVarP(&outputFormat, "format", "o", "text", "Report format: text, yaml or json")
	viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	rootCmd.Flags().StringVarP(&outputFile, "file", "f", "", "Save the report to the specified file")
	viper.BindPFlag("file", rootCmd.Flags().Lookup("file"))
	rootCmd.Flags().BoolVarP(&copyToClipboard, "clipboard", "c", false, "Copy the report to the clipboard")
	viper.BindPFlag("clipboard", rootCmd.Flags().Lookup("clipboard"))
	rootCmd.Flags().StringVar(&pdfOutputFile, "pdf", "", "Save the report as PDF")
	viper.BindPFlag("pdf", rootCmd.Flags().Lookup("pdf"))

	// Interactive Mode
	rootCmd.Flags().BoolVar(&interactiveMode, "interactive", false, "Pick paths with an interactive fuzzy finder")

	// Logging
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file (rotated)")
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
}

// initConfig reads in config file and ENV variables if set, then sets up
// logging from the merged settings.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "bomscan"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("BOMSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv() // read in environment variables that match BOMSCAN_*

	configErr := viper.ReadInConfig()

	closer, err := setupLogging(viper.GetString("log_level"), viper.GetString("log_file"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	logCloser = closer

	var notFound viper.ConfigFileNotFoundError
	switch {
	case configErr == nil:
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("Using config file")
	case errors.As(configErr, &notFound):
		log.Debug().Msg("No config file found, using defaults and flags")
	default:
		log.Warn().Err(configErr).Msg("Error reading config file")
	}
}

// loadScanConfig resolves the scan options from viper.
func loadScanConfig() scanConfig {
	return scanConfig{
		Recursive:      viper.GetBool("recursive"),
		DryRun:         viper.GetBool("dry_run"),
		Verbose:        viper.GetBool("verbose"),
		KeepBackup:     viper.GetBool("keep_backup"),
		BackupExt:      viper.GetString("backup_ext"),
		SkipUnreadable: viper.GetBool("skip_unreadable"),
		ShowHidden:     viper.GetBool("hidden"),
		NoIgnore:       viper.GetBool("no_ignore"),
		Extensions:     normalizeExtensions(parsePatterns(viper.GetString("ext"))),
		TextOnly:       viper.GetBool("text_only"),
		Encodings:      parsePatterns(viper.GetString("encodings")),
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := loadScanConfig()

	// Determine input paths: interactive or command-line args
	var inputs []string
	if interactiveMode {
		selected, err := runInteractiveFinder(cfg.ShowHidden)
		if err != nil {
			return fmt.Errorf("interactive mode error: %w", err)
		}
		if selected == nil {
			log.Info().Msg("Interactive selection aborted")
			return nil
		}
		inputs = selected
	} else {
		inputs = args
		if len(inputs) == 0 {
			inputs = []string{"."}
		}
	}

	var langData *LoadedLanguageData
	if cfg.TextOnly {
		var err error
		langData, err = loadLanguageData(languageSearchPaths())
		if err != nil {
			log.Warn().Err(err).Msg("Could not load language definitions, proceeding without language-based filtering")
			cfg.TextOnly = false
		}
	}

	// --- Main Logic ---
	var tempDirsToClean []string
	defer func() {
		for _, dir := range tempDirsToClean {
			log.Debug().Str("dir", dir).Msg("Cleaning up temporary directory")
			_ = os.RemoveAll(dir)
		}
	}()

	fsys := afero.NewOsFs()
	reports := make([]ScanReport, 0, len(inputs))
	for _, input := range inputs {
		if isGitURL(input) {
			tempDir, err := cloneGitRepo(input, cmd.ErrOrStderr())
			if err != nil {
				log.Error().Err(err).Str("url", input).Msg("Error cloning git repo")
				reports = append(reports, ScanReport{Root: input, Err: err})
				continue
			}
			tempDirsToClean = append(tempDirsToClean, tempDir)

			// the clone is thrown away, so stripping it would only lose work
			remoteCfg := cfg
			remoteCfg.DryRun = true
			report, err := processLocalPath(fsys, tempDir, remoteCfg, langData)
			report.Remote = input
			if err != nil {
				report.Err = err
			}
			reports = append(reports, report)
			continue
		}

		report, err := processLocalPath(fsys, input, cfg, langData)
		if err != nil {
			log.Error().Err(err).Str("path", input).Msg("Error processing path")
			report.Err = err
		} else if report.Err != nil {
			log.Error().Err(report.Err).Str("path", input).Msg("Scan aborted")
		}
		reports = append(reports, report)
	}

	summary := summarize(reports)
	if err := writeReport(cmd.OutOrStdout(), reports, summary, cfg.DryRun); err != nil {
		return err
	}
	if summary.Failed() {
		return errScanFailed
	}
	return nil
}

// writeReport sends the report to the PDF file, the report file, the
// clipboard or stdout, in that order of preference.
func writeReport(stdout io.Writer, reports []ScanReport, summary Summary, dryRun bool) error {
	if pdfPath := viper.GetString("pdf"); pdfPath != "" {
		return generatePDF(reports, summary, dryRun, pdfPath)
	}

	reportFile := viper.GetString("file")
	toClipboard := viper.GetBool("clipboard")
	if reportFile != "" || toClipboard {
		color.NoColor = true
	}
	finalOutput, err := renderReport(reports, summary, viper.GetString("format"), dryRun)
	if err != nil {
		return err
	}

	switch {
	case reportFile != "":
		if err := os.WriteFile(reportFile, []byte(finalOutput), 0o644); err != nil {
			return fmt.Errorf("error writing to file %s: %w", reportFile, err)
		}
		log.Info().Str("file", reportFile).Msg("Report saved")
	case toClipboard:
		if err := clipboard.WriteAll(finalOutput); err != nil {
			log.Warn().Err(err).Msg("Error writing to clipboard, printing instead")
			fmt.Fprint(stdout, finalOutput)
		} else {
			log.Info().Msg("Report copied to clipboard")
		}
	default:
		fmt.Fprint(stdout, finalOutput)
	}
	return nil
}

func main() {
	err := rootCmd.Execute()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

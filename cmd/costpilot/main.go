package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/costpilot/costpilot/internal/audit"
	"github.com/costpilot/costpilot/internal/baseline"
	"github.com/costpilot/costpilot/internal/config"
	"github.com/costpilot/costpilot/internal/dashboard"
	"github.com/costpilot/costpilot/internal/exemption"
	"github.com/costpilot/costpilot/internal/governance"
	"github.com/costpilot/costpilot/internal/pipeline"
	"github.com/costpilot/costpilot/internal/policy"
	"github.com/costpilot/costpilot/internal/slo"
	"github.com/costpilot/costpilot/internal/store"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "costpilot",
		Short: "Continuous cost governance for infrastructure changes",
		Long:  "CostPilot — Estimate. Enforce. Audit.\nA governance pipeline that checks planned infrastructure changes against budget policies, cost baselines, and SLOs before they land.",
	}

	var configFile string
	var port int

	// ─── serve ───
	var devMode bool
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the audit dashboard (read-only HTTP + WebSocket feed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configFile, port, devMode)
		},
	}
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: costpilot.yaml)")
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Override HTTP port")
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Dev mode: verbose logs, CORS *")

	// ─── init ───
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFile
			if path == "" {
				path = "costpilot.yaml"
			}
			if err := config.GenerateDefault(path); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to write (default: costpilot.yaml)")

	// ─── version ───
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("CostPilot %s\n", version)
			fmt.Printf("  Commit:  %s\n", commit)
			fmt.Printf("  Built:   %s\n", buildDate)
		},
	}

	// ─── evaluate ───
	var changesFile, costFile, actor string
	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run one pipeline evaluation over a change set and cost estimate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(configFile, changesFile, costFile, actor)
		},
	}
	evaluateCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	evaluateCmd.Flags().StringVar(&changesFile, "changes", "", "Path to a JSON policy.ChangeSet file (default: no changes)")
	evaluateCmd.Flags().StringVar(&costFile, "cost", "", "Path to a JSON cost-estimate file (required)")
	evaluateCmd.Flags().StringVar(&actor, "actor", "cli", "Actor recorded against every audit event this run produces")
	_ = evaluateCmd.MarkFlagRequired("cost")

	// ─── policy ───
	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Policy management commands",
	}
	var policiesDir string
	policyListCmd := &cobra.Command{
		Use:   "list",
		Short: "List every policy definition found in the policies directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPolicyList(configFile, policiesDir)
		},
	}
	policyListCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	policyListCmd.Flags().StringVar(&policiesDir, "dir", "", "Override the configured policies directory")
	policyCmd.AddCommand(policyListCmd)

	// ─── baseline ───
	baselineCmd := &cobra.Command{
		Use:   "baseline",
		Short: "Cost baseline commands",
	}
	var baselineFile string
	baselineCheckCmd := &cobra.Command{
		Use:   "check",
		Short: "Compare a cost estimate against the configured baselines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBaselineCheck(configFile, baselineFile, costFile)
		},
	}
	baselineCheckCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	baselineCheckCmd.Flags().StringVar(&baselineFile, "file", "", "Override the configured baselines file")
	baselineCheckCmd.Flags().StringVar(&costFile, "cost", "", "Path to a JSON cost-estimate file (required)")
	_ = baselineCheckCmd.MarkFlagRequired("cost")
	baselineCmd.AddCommand(baselineCheckCmd)

	// ─── slo ───
	sloCmd := &cobra.Command{
		Use:   "slo",
		Short: "Service Level Objective commands",
	}
	var sloFile string
	sloCheckCmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate a cost estimate against every configured SLO",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSLOCheck(configFile, sloFile, costFile)
		},
	}
	sloCheckCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	sloCheckCmd.Flags().StringVar(&sloFile, "file", "", "Override the configured SLO definitions file")
	sloCheckCmd.Flags().StringVar(&costFile, "cost", "", "Path to a JSON cost-estimate file (required)")
	_ = sloCheckCmd.MarkFlagRequired("cost")

	sloBurnCmd := &cobra.Command{
		Use:   "burn",
		Short: "Project time-to-breach for every SLO from stored cost-snapshot history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSLOBurn(configFile, sloFile)
		},
	}
	sloBurnCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	sloBurnCmd.Flags().StringVar(&sloFile, "file", "", "Override the configured SLO definitions file")
	sloCmd.AddCommand(sloCheckCmd, sloBurnCmd)

	// ─── audit ───
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit log commands",
	}
	auditVerifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the stored audit log's hash chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditVerify(configFile)
		},
	}
	auditVerifyCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file")

	var exportFormat string
	auditExportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored audit log to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditExport(configFile, exportFormat)
		},
	}
	auditExportCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	auditExportCmd.Flags().StringVar(&exportFormat, "format", "ndjson", "ndjson or csv")

	var complianceFramework string
	var compliancePeriodDays int
	auditComplianceCmd := &cobra.Command{
		Use:   "compliance",
		Short: "Generate a compliance report against the stored audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditCompliance(configFile, complianceFramework, compliancePeriodDays)
		},
	}
	auditComplianceCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	auditComplianceCmd.Flags().StringVar(&complianceFramework, "framework", "soc2",
		"soc2, iso27001, gdpr, hipaa, or pci_dss")
	auditComplianceCmd.Flags().IntVar(&compliancePeriodDays, "period-days", 30, "Length of the reporting window, ending now")

	auditCmd.AddCommand(auditVerifyCmd, auditExportCmd, auditComplianceCmd)

	rootCmd.AddCommand(serveCmd, initCmd, versionCmd, evaluateCmd, policyCmd, baselineCmd, sloCmd, auditCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads configFile if set, else the first conventional name found
// in the working directory, falling back to config.DefaultConfig.
func loadConfig(configFile string) *config.Config {
	cfgLoader := config.NewLoader()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		if err := cfgLoader.Load(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load %s, using defaults: %v\n", configFile, err)
		}
	}
	return cfgLoader.Get()
}

func newLogger(cfg *config.Config, devMode bool) *slog.Logger {
	level := cfg.Server.LogLevel
	if devMode {
		level = "debug"
	}
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func runServe(configFile string, portOverride int, devMode bool) error {
	cfg := loadConfig(configFile)
	if portOverride > 0 {
		cfg.Server.Port = portOverride
	}
	if devMode {
		cfg.Server.CORS = true
	}
	logger := newLogger(cfg, devMode)

	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	if err := st.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = st.Close() }()

	persisted, err := st.LoadAuditEntries()
	if err != nil {
		return fmt.Errorf("failed to load audit log: %w", err)
	}
	log, err := audit.Restore(persisted, logger)
	if err != nil {
		return fmt.Errorf("audit log failed verification on load: %w", err)
	}

	clock := governance.SystemClock{}
	dash := dashboard.NewServer(dashboard.Config{CORS: cfg.Server.CORS}, log, clock, logger)

	fmt.Println()
	fmt.Println("  ╔══════════════════════════════════════════╗")
	fmt.Println("  ║            CostPilot v" + version + "               ║")
	fmt.Println("  ║   Continuous cost governance              ║")
	fmt.Println("  ╚══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  → Dashboard: http://localhost:%d/api\n", cfg.Server.Port)
	fmt.Printf("  → WebSocket: ws://localhost:%d/api/ws/audit\n", cfg.Server.Port)
	fmt.Printf("  → Storage:   %s (%s)\n", cfg.Storage.Driver, cfg.Storage.Path)
	fmt.Printf("  → Entries:   %d loaded\n", log.Count())
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down...")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = dash.Shutdown(shutCtx)
	}()

	logger.Info("starting dashboard server", "port", cfg.Server.Port)
	if err := dash.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		return fmt.Errorf("dashboard server error: %w", err)
	}
	return nil
}

func runEvaluate(configFile, changesFile, costFile, actor string) error {
	cfg := loadConfig(configFile)
	now := time.Now().UTC()
	logger := newLogger(cfg, false)

	cost, err := readCostEstimate(costFile)
	if err != nil {
		return err
	}
	changes, err := readChangeSet(changesFile)
	if err != nil {
		return err
	}

	policies, err := policy.LoadDir(cfg.PolicyDirs.Policies, now)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}
	repo := policy.NewRepository()
	for _, p := range policies {
		p.Activate(now)
		if err := repo.Add(p); err != nil {
			return fmt.Errorf("failed to register policy %q: %w", p.ID, err)
		}
	}

	clock := governance.SystemClock{}
	engine := policy.NewEngine(repo, clock, logger)
	if exFile := resolveDefFile(cfg.PolicyDirs.Exemptions, "exemptions.yaml"); fileExists(exFile) {
		validator := exemption.NewValidator(clock)
		file, err := validator.LoadFile(exFile)
		if err != nil {
			logger.Warn("failed to load exemptions file", "path", exFile, "error", err)
		} else {
			engine = engine.WithExemptions(validator, file)
		}
	}

	var baselines baseline.Config
	if bFile := resolveDefFile(cfg.PolicyDirs.Baselines, "baselines.yaml"); fileExists(bFile) {
		if loaded, err := baseline.LoadFile(bFile); err != nil {
			logger.Warn("failed to load baselines file", "path", bFile, "error", err)
		} else {
			baselines = loaded
		}
	}

	var sloConfig slo.Config
	if sFile := resolveDefFile(cfg.PolicyDirs.SLOs, "slos.yaml"); fileExists(sFile) {
		if loaded, err := slo.LoadFile(sFile); err != nil {
			logger.Warn("failed to load SLO definitions file", "path", sFile, "error", err)
		} else {
			sloConfig = loaded
		}
	}

	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	if err := st.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = st.Close() }()

	persisted, err := st.LoadAuditEntries()
	if err != nil {
		return fmt.Errorf("failed to load audit log: %w", err)
	}
	log, err := audit.Restore(persisted, logger)
	if err != nil {
		return fmt.Errorf("audit log failed verification on load: %w", err)
	}

	snapshots, err := st.ListCostSnapshots(nil, nil)
	if err != nil {
		return fmt.Errorf("failed to load cost-snapshot history: %w", err)
	}

	ids := audit.IDSource{Clock: clock}
	coordinator := pipeline.New(engine, baselines, sloConfig, slo.NewCalculator(logger), log, ids, clock, logger)
	verdict := coordinator.Evaluate(changes, cost, snapshots, actor)

	for _, seq := range verdict.AuditSequences {
		entries := log.Entries()
		for _, e := range entries {
			if e.Sequence == seq {
				if err := st.AppendAuditEntry(e); err != nil {
					logger.Error("failed to persist audit entry", "sequence", seq, "error", err)
				}
			}
		}
	}

	if err := st.InsertCostSnapshot(slo.CostSnapshot{
		Timestamp:        now,
		TotalMonthlyCost: cost.Monthly,
		ModuleCosts:      cost.ModuleCosts,
	}); err != nil {
		logger.Warn("failed to record cost snapshot", "error", err)
	}

	printVerdict(verdict)
	if !verdict.Passed {
		return fmt.Errorf("evaluation failed: blocking policy or SLO violations found")
	}
	return nil
}

func printVerdict(v pipeline.Verdict) {
	if v.Passed {
		fmt.Println("✓ Passed")
	} else {
		fmt.Println("✗ Failed")
	}
	for _, violation := range v.PolicyViolations {
		fmt.Printf("  [policy:%s] %s — %s\n", violation.Severity, violation.PolicyName, violation.Message)
	}
	for _, w := range v.PolicyWarnings {
		fmt.Printf("  [warning] %s\n", w)
	}
	for _, id := range v.AppliedExemptions {
		fmt.Printf("  [exempted] %s\n", id)
	}
	for _, bv := range v.BaselineViolations {
		fmt.Printf("  [baseline:%s] %s\n", bv.Severity, formatBaselineViolation(bv))
	}
	for _, e := range v.SLOReport.Evaluations {
		if e.Status != slo.StatusPass {
			fmt.Printf("  [slo:%s] %s — %s\n", e.Status, e.SLOName, e.Message)
		}
	}
	for _, a := range v.BurnReport.Analyses {
		if a.Risk.RequiresAction() {
			fmt.Printf("  [burn:%s] %s\n", a.Risk, a.SLOID)
		}
	}
}

func runPolicyList(configFile, dirOverride string) error {
	cfg := loadConfig(configFile)
	dir := cfg.PolicyDirs.Policies
	if dirOverride != "" {
		dir = dirOverride
	}
	policies, err := policy.LoadDir(dir, time.Now())
	if err != nil {
		return fmt.Errorf("failed to load policies from %s: %w", dir, err)
	}
	if len(policies) == 0 {
		fmt.Println("No policies found.")
		return nil
	}
	fmt.Printf("%-16s %-28s %-10s %-10s %s\n", "ID", "NAME", "CATEGORY", "SEVERITY", "OWNER")
	fmt.Println(strings.Repeat("─", 80))
	for _, p := range policies {
		fmt.Printf("%-16s %-28s %-10s %-10s %s\n", p.ID, p.Name, p.Category, p.Severity, p.Ownership.Owner)
	}
	return nil
}

func runBaselineCheck(configFile, fileOverride, costFile string) error {
	cfg := loadConfig(configFile)
	path := fileOverride
	if path == "" {
		path = resolveDefFile(cfg.PolicyDirs.Baselines, "baselines.yaml")
	}
	cfgBaseline, err := baseline.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load baselines from %s: %w", path, err)
	}
	cost, err := readCostEstimate(costFile)
	if err != nil {
		return err
	}

	result := baseline.CompareModuleCosts(cfgBaseline, cost.ModuleCosts)
	if v, ok := baseline.CompareGlobal(cfgBaseline, cost.Monthly); ok {
		result.Violations = append(result.Violations, v)
	}
	if len(result.Violations) == 0 {
		fmt.Println("✓ All costs within baseline variance")
		return nil
	}
	for _, v := range result.Violations {
		fmt.Printf("  [%s] %s\n", v.Severity, formatBaselineViolation(v))
	}
	if result.HasCritical() {
		return fmt.Errorf("baseline check failed: critical variance found")
	}
	return nil
}

func formatBaselineViolation(v baseline.Violation) string {
	return fmt.Sprintf("%s: expected $%.2f, actual $%.2f (%.1f%% variance, allowed %.1f%%)",
		v.Name, v.ExpectedCost, v.ActualCost, v.VariancePercent, v.AcceptableVariance)
}

func runSLOCheck(configFile, fileOverride, costFile string) error {
	cfg := loadConfig(configFile)
	path := fileOverride
	if path == "" {
		path = resolveDefFile(cfg.PolicyDirs.SLOs, "slos.yaml")
	}
	cfgSLO, err := slo.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load SLOs from %s: %w", path, err)
	}
	cost, err := readCostEstimate(costFile)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var evaluations []slo.Evaluation
	for _, s := range cfgSLO.SLOs {
		value, ok := currentValueForCLI(s, cost)
		if !ok {
			continue
		}
		evaluations = append(evaluations, s.Evaluate(value, now))
	}
	report := slo.NewReport(evaluations)
	for _, e := range evaluations {
		fmt.Printf("  [%s] %s — %s\n", e.Status, e.SLOName, e.Message)
	}
	if report.ShouldBlockDeployment(cfgSLO) {
		return fmt.Errorf("SLO check failed: a blocking SLO was violated")
	}
	return nil
}

// currentValueForCLI supplies the SLO kinds a standalone cost estimate
// (without a full pipeline run) can answer: MonthlyBudget and ModuleBudget.
// Unlike pipeline.currentValueFor, it returns the total for a MonthlyBudget
// SLO whatever its target, and looks a ModuleBudget target up in
// ModuleCosts as written, without stripping a "module." prefix.
func currentValueForCLI(s slo.SLO, cost policy.CostEstimate) (float64, bool) {
	switch s.Kind {
	case slo.TypeMonthlyBudget:
		return cost.Monthly, true
	case slo.TypeModuleBudget:
		v, ok := cost.ModuleCosts[s.Target]
		return v, ok
	default:
		return 0, false
	}
}

func runSLOBurn(configFile, fileOverride string) error {
	cfg := loadConfig(configFile)
	path := fileOverride
	if path == "" {
		path = resolveDefFile(cfg.PolicyDirs.SLOs, "slos.yaml")
	}
	cfgSLO, err := slo.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load SLOs from %s: %w", path, err)
	}

	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	if err := st.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = st.Close() }()

	snapshots, err := st.ListCostSnapshots(nil, nil)
	if err != nil {
		return fmt.Errorf("failed to load cost-snapshot history: %w", err)
	}

	calc := slo.NewCalculator(newLogger(cfg, false))
	report := calc.AnalyzeAll(cfgSLO.SLOs, snapshots, time.Now().UTC())
	if len(report.Analyses) == 0 {
		fmt.Println("Not enough cost-snapshot history to project a burn rate yet.")
		return nil
	}
	for _, a := range report.Analyses {
		breach := "no projected breach"
		if a.DaysToBreach != nil {
			breach = fmt.Sprintf("%.1f days to breach", *a.DaysToBreach)
		}
		fmt.Printf("  [%s] %s — %s\n", a.Risk, a.SLOID, breach)
	}
	if report.RequiresAction() {
		return fmt.Errorf("burn-rate check failed: at least one SLO requires action")
	}
	return nil
}

func runAuditVerify(configFile string) error {
	cfg := loadConfig(configFile)
	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	if err := st.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = st.Close() }()

	entries, err := st.LoadAuditEntries()
	if err != nil {
		return fmt.Errorf("failed to load audit log: %w", err)
	}
	log, err := audit.Restore(entries, nil)
	if err != nil {
		fmt.Printf("✗ Hash chain broken: %v\n", err)
		return err
	}
	fmt.Printf("✓ Hash chain intact (%d entries verified)\n", log.Count())
	return nil
}

func runAuditExport(configFile, format string) error {
	cfg := loadConfig(configFile)
	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	if err := st.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = st.Close() }()

	entries, err := st.LoadAuditEntries()
	if err != nil {
		return fmt.Errorf("failed to load audit log: %w", err)
	}
	log, err := audit.Restore(entries, nil)
	if err != nil {
		return fmt.Errorf("audit log failed verification on load: %w", err)
	}

	var out string
	switch format {
	case "csv":
		out, err = log.ExportCSV()
	default:
		out, err = log.ExportNDJSON()
	}
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func runAuditCompliance(configFile, framework string, periodDays int) error {
	cfg := loadConfig(configFile)
	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	if err := st.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = st.Close() }()

	entries, err := st.LoadAuditEntries()
	if err != nil {
		return fmt.Errorf("failed to load audit log: %w", err)
	}
	log, err := audit.Restore(entries, nil)
	if err != nil {
		return fmt.Errorf("audit log failed verification on load: %w", err)
	}

	fw, err := parseComplianceFramework(framework)
	if err != nil {
		return err
	}

	clock := governance.SystemClock{}
	analyzer := audit.NewAnalyzer(log, clock)
	now := clock.Now()
	report := analyzer.GenerateReport(fw, now.AddDate(0, 0, -periodDays), now)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode compliance report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func parseComplianceFramework(name string) (audit.Framework, error) {
	switch strings.ToLower(name) {
	case "soc2":
		return audit.FrameworkSOC2, nil
	case "iso27001":
		return audit.FrameworkISO27001, nil
	case "gdpr":
		return audit.FrameworkGDPR, nil
	case "hipaa":
		return audit.FrameworkHIPAA, nil
	case "pci_dss", "pcidss", "pci-dss":
		return audit.FrameworkPCIDSS, nil
	default:
		return "", fmt.Errorf("unknown compliance framework %q (want soc2, iso27001, gdpr, hipaa, or pci_dss)", name)
	}
}

func readCostEstimate(path string) (policy.CostEstimate, error) {
	if path == "" {
		return policy.CostEstimate{}, fmt.Errorf("--cost is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return policy.CostEstimate{}, fmt.Errorf("failed to read cost file %s: %w", path, err)
	}
	var cost policy.CostEstimate
	if err := json.Unmarshal(raw, &cost); err != nil {
		return policy.CostEstimate{}, fmt.Errorf("failed to parse cost file %s: %w", path, err)
	}
	return cost, nil
}

func readChangeSet(path string) (policy.ChangeSet, error) {
	if path == "" {
		return policy.ChangeSet{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return policy.ChangeSet{}, fmt.Errorf("failed to read changes file %s: %w", path, err)
	}
	var changes policy.ChangeSet
	if err := json.Unmarshal(raw, &changes); err != nil {
		return policy.ChangeSet{}, fmt.Errorf("failed to parse changes file %s: %w", path, err)
	}
	return changes, nil
}

// resolveDefFile treats pathOrDir as a direct file path if it names a file,
// or as a directory containing filename otherwise, matching
// config.PolicyDirsConfig's "one directory per concern" layout while still
// letting a user point straight at a single file.
func resolveDefFile(pathOrDir, filename string) string {
	if pathOrDir == "" {
		return ""
	}
	info, err := os.Stat(pathOrDir)
	if err != nil {
		return pathOrDir
	}
	if info.IsDir() {
		return filepath.Join(pathOrDir, filename)
	}
	return pathOrDir
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func findConfigFile() string {
	candidates := []string{
		"costpilot.yaml",
		"costpilot.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "costpilot", "config.yaml"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

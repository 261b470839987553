package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum-optimism/infra/op-proctor/runner"
	"github.com/ethereum-optimism/infra/op-proctor/types"
)

const (
	RunDirectoryPrefix = "testrun-" // Standardized prefix for run directories
	SummaryFilename    = "summary.log"
	ResultsFilename    = "results.json"
)

// ResultSink is an interface for different ways of consuming execution results
type ResultSink interface {
	// Consume processes a single execution result
	Consume(result *runner.Result, runID string) error
	// Complete is called when all results have been consumed
	Complete(runID string) error
}

// FileLogger owns the artifact directory for one run and feeds results
// through its sinks. The default sinks produce a plaintext summary and a
// machine-readable results.json.
type FileLogger struct {
	baseDir      string                // Base directory for logs
	logDir       string                // Directory for this run
	summaryFile  string                // Path to the summary file
	resultsFile  string                // Path to the JSON results file
	mu           sync.Mutex            // Protects concurrent file operations
	sinks        []ResultSink          // Collection of result consumers
	asyncWriters map[string]*AsyncFile // Map of async file writers
	runID        string                // Current run ID
}

// AsyncFile provides non-blocking file writing capabilities
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewAsyncFile creates a new AsyncFile for non-blocking writes
func NewAsyncFile(filepath string) (*AsyncFile, error) {
	file, err := os.Create(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", filepath, err)
	}

	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100), // Buffer channel to reduce blocking
	}

	// Start the background writer
	af.wg.Add(1)
	go af.processQueue()

	return af, nil
}

// Write queues data to be written asynchronously
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return fmt.Errorf("async file is closed")
	}

	// Make a copy of the data to avoid race conditions
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	af.queue <- dataCopy
	return nil
}

// processQueue processes the write queue in the background
func (af *AsyncFile) processQueue() {
	defer af.wg.Done()

	for data := range af.queue {
		_, err := af.file.Write(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to file: %v\n", err)
		}
	}
}

// Close stops the async writer and closes the file
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	// Wait for all writes to complete
	af.wg.Wait()
	return af.file.Close()
}

// NewFileLogger creates a new FileLogger rooted at baseDir for the given run
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	summaryFile := filepath.Join(logDir, SummaryFilename)
	resultsFile := filepath.Join(logDir, ResultsFilename)

	for _, dir := range []string{baseDir, logDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	logger := &FileLogger{
		baseDir:      baseDir,
		logDir:       logDir,
		summaryFile:  summaryFile,
		resultsFile:  resultsFile,
		sinks:        make([]ResultSink, 0),
		asyncWriters: make(map[string]*AsyncFile),
		runID:        runID,
	}

	logger.sinks = append(logger.sinks, &JSONResultsSink{logger: logger})

	return logger, nil
}

// AddSink registers an additional result consumer.
func (l *FileLogger) AddSink(sink ResultSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, sink)
}

// getAsyncWriter gets or creates an AsyncFile for the given path
func (l *FileLogger) getAsyncWriter(path string) (*AsyncFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if writer, exists := l.asyncWriters[path]; exists {
		return writer, nil
	}

	writer, err := NewAsyncFile(path)
	if err != nil {
		return nil, err
	}

	l.asyncWriters[path] = writer
	return writer, nil
}

// closeAllWriters closes all async writers
func (l *FileLogger) closeAllWriters() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, writer := range l.asyncWriters {
		_ = writer.Close() // Ignore errors on close
	}
	l.asyncWriters = make(map[string]*AsyncFile)
}

// GetDirectoryForRunID returns the path for a specific runID
// The runID must be provided, otherwise an error is returned
func (l *FileLogger) GetDirectoryForRunID(runID string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("runID cannot be empty")
	}
	if runID == l.runID {
		return l.logDir, nil
	}
	return filepath.Join(l.baseDir, RunDirectoryPrefix+runID), nil
}

// LogTestResult processes an execution result through all registered sinks
func (l *FileLogger) LogTestResult(result *runner.Result, runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	l.mu.Lock()
	sinks := make([]ResultSink, len(l.sinks))
	copy(sinks, l.sinks)
	l.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Consume(result, runID); err != nil {
			return fmt.Errorf("error in sink: %w", err)
		}
	}

	return nil
}

// LogSummary writes a rendered summary of the run to the summary file
func (l *FileLogger) LogSummary(summary string, runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	summaryFile, err := l.GetSummaryFileForRunID(runID)
	if err != nil {
		return err
	}

	writer, err := l.getAsyncWriter(summaryFile)
	if err != nil {
		return err
	}

	return writer.Write([]byte(summary))
}

// Complete finalizes all sinks and closes all file writers
func (l *FileLogger) Complete(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	l.mu.Lock()
	sinks := make([]ResultSink, len(l.sinks))
	copy(sinks, l.sinks)
	l.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Complete(runID); err != nil {
			return fmt.Errorf("error completing sink: %w", err)
		}
	}

	l.closeAllWriters()

	return nil
}

// GetRunID returns the current runID
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// GetBaseDir returns the directory holding this run's artifacts
func (l *FileLogger) GetBaseDir() string {
	return l.logDir
}

// GetSummaryFile returns the path to the summary file
func (l *FileLogger) GetSummaryFile() string {
	return l.summaryFile
}

// GetResultsFile returns the path to the JSON results file
func (l *FileLogger) GetResultsFile() string {
	return l.resultsFile
}

// GetSummaryFileForRunID returns the summary file for a specific runID
func (l *FileLogger) GetSummaryFileForRunID(runID string) (string, error) {
	baseDir, err := l.GetDirectoryForRunID(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, SummaryFilename), nil
}

// GetResultsFileForRunID returns the results.json path for a specific runID
func (l *FileLogger) GetResultsFileForRunID(runID string) (string, error) {
	baseDir, err := l.GetDirectoryForRunID(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, ResultsFilename), nil
}

// JSONResultsSink collects execution results and writes a machine-readable
// results.json when the run completes.
type JSONResultsSink struct {
	logger *FileLogger

	mu      sync.Mutex
	records map[string][]resultRecord // Map of runID -> collected records
}

// resultRecord is the JSON shape of one execution entry.
type resultRecord struct {
	Description  string           `json:"description"`
	ItemType     string           `json:"item_type,omitempty"`
	Status       types.Status     `json:"status"`
	Evaluation   types.Evaluation `json:"evaluation,omitempty"`
	Returned     string           `json:"returned,omitempty"`
	ReturnedType string           `json:"returned_type,omitempty"`
	Fault        string           `json:"fault,omitempty"`
	RunTimeMS    int64            `json:"run_time_ms,omitempty"`
	BudgetMS     int64            `json:"budget_ms,omitempty"`
}

func newResultRecord(result *runner.Result) resultRecord {
	rec := resultRecord{
		Description: result.Case().Description,
		ItemType:    result.ItemType(),
		Status:      result.Status(),
		BudgetMS:    result.Case().Budget.Milliseconds(),
	}
	if eval, err := result.Evaluation(); err == nil {
		rec.Evaluation = eval
	}
	if v, ok := result.Returned(); ok {
		rec.Returned = fmt.Sprintf("%v", v)
		rec.ReturnedType = fmt.Sprintf("%T", v)
	}
	if fault := result.Fault(); fault != nil {
		rec.Fault = fault.Error()
	}
	if rt, err := result.RunTime(); err == nil {
		rec.RunTimeMS = rt.Milliseconds()
	}
	return rec
}

// Consume collects one result for the final results file
func (s *JSONResultsSink) Consume(result *runner.Result, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records == nil {
		s.records = make(map[string][]resultRecord)
	}
	s.records[runID] = append(s.records[runID], newResultRecord(result))
	return nil
}

// Complete writes the collected records as results.json
func (s *JSONResultsSink) Complete(runID string) error {
	s.mu.Lock()
	records := s.records[runID]
	delete(s.records, runID)
	s.mu.Unlock()

	if records == nil {
		records = []resultRecord{}
	}

	doc := struct {
		RunID   string         `json:"run_id"`
		Results []resultRecord `json:"results"`
	}{
		RunID:   runID,
		Results: records,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	resultsFile, err := s.logger.GetResultsFileForRunID(runID)
	if err != nil {
		return err
	}

	writer, err := s.logger.getAsyncWriter(resultsFile)
	if err != nil {
		return err
	}

	return writer.Write(data)
}

package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/scalaris-team/scalaris-go/cmd/util"
	"github.com/scalaris-team/scalaris-go/lib/store"
	"github.com/scalaris-team/scalaris-go/rpc/client"
	"github.com/scalaris-team/scalaris-go/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for Scalaris nodes",
		Long: util.WrapString("Runs read, write, test_and_set, add_on_nr and nop against the node. " +
			"Every thread uses its own connection, a connection carries one call at a time."),
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix    = "__test"
	perfNumThreads   = 10
	perfOpsPerThread = 1000
	perfKeySpread    = 100
	perfSkip         = make([]string, 0)
	perfRegistry     = gometrics.NewRegistry()
)

// perfTest is a single benchmark. prepare runs once before the workers start.
type perfTest struct {
	name    string
	prepare func(s store.IStore, iter func(func(string))) error
	op      func(s store.IStore, key string, i int) error
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. write,read)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads (connections) to use for the benchmark"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of operations per thread and benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the client metrics in Prometheus format after the run"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfOpsPerThread = viper.GetInt("ops")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfKeySpread <= 0 || perfNumThreads <= 0 || perfOpsPerThread <= 0 {
		return fmt.Errorf("keys, threads and ops must be positive")
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for Scalaris nodes")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Transport: %s, Serializer: %s\n", viper.GetString("transport"), viper.GetString("serializer"))
	fmt.Printf("Threads: %d, Operations per thread: %d\n", perfNumThreads, perfOpsPerThread)
	fmt.Println()

	fmt.Println("starting tests...")

	writeAll := func(s store.IStore, iter func(func(string))) error {
		var err error
		iter(func(k string) {
			if err == nil {
				err = s.Write(k, 0)
			}
		})
		return err
	}

	tests := []perfTest{
		{
			name: "write",
			op: func(s store.IStore, key string, _ int) error {
				return s.Write(key, "test")
			},
		},
		{
			name:    "read",
			prepare: writeAll,
			op: func(s store.IStore, key string, _ int) error {
				_, err := s.Read(key)
				return err
			},
		},
		{
			name: "read-not-found",
			op: func(s store.IStore, key string, _ int) error {
				_, err := s.Read(key + "-missing")
				if store.IsNotFound(err) {
					return nil // expected
				}
				return err
			},
		},
		{
			name:    "test-and-set",
			prepare: writeAll,
			op: func(s store.IStore, key string, _ int) error {
				err := s.TestAndSet(key, 0, 0)
				if store.HasCode(err, store.RetCKeyChanged) {
					return nil // concurrent modification by another thread
				}
				return err
			},
		},
		{
			name:    "add-on-nr",
			prepare: writeAll,
			op: func(s store.IStore, key string, _ int) error {
				return s.AddOnNr(key, 1)
			},
		},
		{
			name: "nop",
			op: func(s store.IStore, _ string, i int) error {
				return s.Nop(i)
			},
		},
	}

	// Run all tests
	results := make(map[string]gometrics.Timer)
	for _, test := range tests {
		if shouldSkip(test.name) {
			printResult(test.name, nil)
			continue
		}
		timer, err := runPerfTest(test)
		if err != nil {
			return fmt.Errorf("%s: %w", test.name, err)
		}
		results[test.name] = timer
		printResult(test.name, timer)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	// Print the metrics recorded by the connections
	if viper.GetBool("metrics") {
		fmt.Println()
		common.WriteMetrics(os.Stdout)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runPerfTest runs test on perfNumThreads connections and returns the timer
// holding the latency of every operation
func runPerfTest(test perfTest) (gometrics.Timer, error) {
	getKey, iter := getKeys(test.name)

	if test.prepare != nil {
		if err := test.prepare(rpcStore, iter); err != nil {
			return nil, fmt.Errorf("failed to prepare: %w", err)
		}
	}

	timer := gometrics.GetOrRegisterTimer(test.name, perfRegistry)
	errCount := gometrics.GetOrRegisterCounter(test.name+".errors", perfRegistry)

	// Open one connection per thread
	stores := make([]closingStore, 0, perfNumThreads)
	defer func() {
		for _, s := range stores {
			_ = s.Close()
		}
	}()
	for i := 0; i < perfNumThreads; i++ {
		conn, err := util.OpenConnection(*util.GetClientConfig())
		if err != nil {
			return nil, err
		}
		s, err := client.NewRPCStore(conn)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		stores = append(stores, closingStore{IStore: s, close: conn.Close})
	}

	var wg sync.WaitGroup
	for t, s := range stores {
		wg.Add(1)
		go func(t int, s store.IStore) {
			defer wg.Done()
			for i := 0; i < perfOpsPerThread; i++ {
				key := getKey(t*perfOpsPerThread + i)
				start := time.Now()
				err := test.op(s, key, i)
				timer.UpdateSince(start)
				if err != nil {
					errCount.Inc(1)
					log.Printf("(%s) - error: %v\n", test.name, err)
				}
			}
		}(t, s)
	}
	wg.Wait()

	// cleanup
	iter(func(k string) {
		if err := rpcStore.Write(k, nil); err != nil {
			log.Printf("(%s) - error resetting key: %v\n", test.name, err)
		}
	})

	if errCount.Count() > 0 {
		fmt.Printf("%-20s%d errors\n", test.name, errCount.Count())
	}
	return timer, nil
}

// closingStore couples a store with the connection it uses
type closingStore struct {
	store.IStore
	close func() error
}

func (c closingStore) Close() error {
	return c.close()
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, timer gometrics.Timer) {
	if timer == nil || timer.Count() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	snapshot := timer.Snapshot()
	ps := snapshot.Percentiles([]float64{0.5, 0.95, 0.99})

	// Print the formatted result
	fmt.Printf("%-20s%d ops\tmean %s\tp50 %s\tp95 %s\tp99 %s\tmax %s\t%.0f ops/sec\n",
		test,
		snapshot.Count(),
		time.Duration(snapshot.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
		time.Duration(snapshot.Max()),
		snapshot.RateMean(),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]gometrics.Timer, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Count", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "MaxNs", "OpsPerSec",
		"Hostname", "Port", "TimeoutSec", "Serializer", "Transport",
		"Threads", "OpsPerThread", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, timer := range results {
		snapshot := timer.Snapshot()
		ps := snapshot.Percentiles([]float64{0.5, 0.95, 0.99})

		row := []string{
			test,
			strconv.FormatInt(snapshot.Count(), 10),
			fmt.Sprintf("%.0f", snapshot.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			strconv.FormatInt(snapshot.Max(), 10),
			fmt.Sprintf("%.0f", snapshot.RateMean()),
			config.Hostname,
			strconv.FormatUint(uint64(config.Port), 10),
			strconv.Itoa(config.TimeoutSecond),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfOpsPerThread),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}

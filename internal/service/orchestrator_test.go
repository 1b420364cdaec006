package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"unfollowcleaner/internal/core/domain"
	"unfollowcleaner/internal/core/ports"
	"unfollowcleaner/internal/service"
)

var _ = Describe("Orchestrator", func() {
	var (
		analytics *mockAnalytics
		follows   *mockFollows
		term      *mockConsole
		dryRun    bool
	)

	newOrchestrator := func() *service.Orchestrator {
		runner := service.NewQueryRunner(analytics, term, service.QueryRunnerConfig{
			QueryID:         "1234567",
			ParamName:       "fid",
			ResultField:     "fid",
			PollInterval:    time.Millisecond,
			MaxPollAttempts: 10,
		}, clock.WallClock)
		actuator := service.NewActuator(follows, term, service.ActuatorConfig{SignerUUID: "signer-1"})
		return service.NewOrchestrator(runner, actuator, term, dryRun)
	}

	BeforeEach(func() {
		analytics = &mockAnalytics{
			resultsFn: func(context.Context, string) ([]ports.Row, error) {
				rows := make([]ports.Row, 0, 250)
				for i := 1; i <= 250; i++ {
					rows = append(rows, ports.Row{"fid": float64(i)})
				}
				return rows, nil
			},
		}
		follows = &mockFollows{}
		term = &mockConsole{}
		dryRun = false
	})

	It("unfollows everything after the operator confirms", func() {
		term.reply = "Yes"

		result, err := newOrchestrator().Run(context.Background(), 3621)
		Expect(err).NotTo(HaveOccurred())
		_, parseErr := uuid.Parse(result.RunID)
		Expect(parseErr).NotTo(HaveOccurred())
		Expect(result.TargetFID).To(Equal(domain.FID(3621)))
		Expect(result.Flagged).To(HaveLen(250))
		Expect(result.Confirmed).To(BeTrue())
		Expect(result.Outcomes).To(HaveLen(3))
		Expect(result.Unfollowed()).To(Equal(250))
		Expect(result.CompletedAt).NotTo(BeTemporally("<", result.StartedAt))
		Expect(follows.Calls()).To(HaveLen(3))
	})

	DescribeTable("aborts without unfollowing on anything but yes",
		func(answer string) {
			term.reply = answer

			result, err := newOrchestrator().Run(context.Background(), 3621)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Confirmed).To(BeFalse())
			Expect(result.Outcomes).To(BeEmpty())
			Expect(follows.Calls()).To(BeEmpty())
			Expect(term.Messages()).To(ContainElement(ContainSubstring("Aborted")))
		},
		Entry("empty", ""),
		Entry("no", "no"),
		Entry("y", "y"),
		Entry("padded yes", " yes "),
	)

	It("skips the prompt when nothing is flagged", func() {
		analytics.resultsFn = func(context.Context, string) ([]ports.Row, error) { return nil, nil }

		result, err := newOrchestrator().Run(context.Background(), 3621)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Flagged).To(BeEmpty())
		Expect(term.Prompts()).To(BeEmpty())
		Expect(follows.Calls()).To(BeEmpty())
	})

	It("treats a failed query as nothing to do", func() {
		analytics.statusFn = func(_ context.Context, id string, _ int) (*domain.Execution, error) {
			return &domain.Execution{ID: id, State: domain.StateFailed}, nil
		}

		result, err := newOrchestrator().Run(context.Background(), 3621)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Flagged).To(BeEmpty())
		Expect(term.Prompts()).To(BeEmpty())
		Expect(follows.Calls()).To(BeEmpty())
	})

	It("lists the accounts without prompting in dry-run mode", func() {
		dryRun = true

		result, err := newOrchestrator().Run(context.Background(), 3621)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.DryRun).To(BeTrue())
		Expect(result.Flagged).To(HaveLen(250))
		Expect(term.Prompts()).To(BeEmpty())
		Expect(follows.Calls()).To(BeEmpty())
		Expect(term.Messages()).To(ContainElement(ContainSubstring("Dry run")))
	})

	It("returns the context error when cancelled at the prompt", func() {
		term.blockPrompt = true
		ctx, cancel := context.WithCancel(context.Background())
		type runReturn struct {
			result *domain.RunResult
			err    error
		}
		done := make(chan runReturn, 1)
		go func() {
			result, err := newOrchestrator().Run(ctx, 3621)
			done <- runReturn{result, err}
		}()

		Eventually(term.Prompts).Should(HaveLen(1))
		cancel()

		var ret runReturn
		Eventually(done).Should(Receive(&ret))
		Expect(ret.err).To(MatchError(context.Canceled))
		Expect(ret.result.Confirmed).To(BeFalse())
		Expect(follows.Calls()).To(BeEmpty())
	})

	It("returns the context error when cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newOrchestrator().Run(ctx, 3621)
		Expect(err).To(MatchError(context.Canceled))
		Expect(follows.Calls()).To(BeEmpty())
	})
})

package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"unfollowcleaner/internal/config"
	"unfollowcleaner/internal/core/domain"
)

var managedVars = []string{
	"APP_ENV", "DUNE_API_KEY", "NEYNAR_API_KEY", "SIGNER_UUID", "TARGET_FID",
	"DUNE_QUERY_ID", "DUNE_BASE_URL", "NEYNAR_BASE_URL", "RESULT_FIELD",
	"QUERY_PARAM_NAME", "POLL_INTERVAL", "MAX_POLL_ATTEMPTS", "BATCH_SIZE",
	"MAX_CONCURRENCY", "HTTP_TIMEOUT",
}

func setEnv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
}

var _ = Describe("Load", func() {
	BeforeEach(func() {
		saved := map[string]*string{}
		for _, key := range managedVars {
			if v, ok := os.LookupEnv(key); ok {
				saved[key] = &v
			} else {
				saved[key] = nil
			}
			Expect(os.Unsetenv(key)).To(Succeed())
		}
		DeferCleanup(func() {
			for key, v := range saved {
				if v == nil {
					_ = os.Unsetenv(key)
				} else {
					_ = os.Setenv(key, *v)
				}
			}
		})

		// Skip .env loading.
		setEnv("APP_ENV", "test")
	})

	setRequired := func() {
		setEnv("DUNE_API_KEY", "dune-key")
		setEnv("NEYNAR_API_KEY", "neynar-key")
		setEnv("SIGNER_UUID", "signer-1")
		setEnv("TARGET_FID", "3621")
		setEnv("DUNE_QUERY_ID", "1234567")
	}

	It("loads required values and applies defaults", func() {
		setRequired()

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.TargetFID).To(Equal(domain.FID(3621)))
		Expect(cfg.Dune.APIKey).To(Equal("dune-key"))
		Expect(cfg.Dune.QueryID).To(Equal("1234567"))
		Expect(cfg.Dune.BaseURL).To(Equal("https://api.dune.com/api/v1"))
		Expect(cfg.Dune.ParamName).To(Equal("fid"))
		Expect(cfg.Dune.ResultField).To(Equal("fid"))
		Expect(cfg.Neynar.SignerUUID).To(Equal("signer-1"))
		Expect(cfg.Polling.Interval).To(Equal(3 * time.Second))
		Expect(cfg.Polling.MaxAttempts).To(Equal(400))
		Expect(cfg.Batch.Size).To(Equal(100))
		Expect(cfg.Batch.MaxConcurrency).To(Equal(5))
		Expect(cfg.HTTP.Timeout).To(Equal(30 * time.Second))
		Expect(cfg.OTel.Enabled()).To(BeFalse())
	})

	It("reports every missing required variable at once", func() {
		_, err := config.Load()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("DUNE_API_KEY"))
		Expect(err.Error()).To(ContainSubstring("NEYNAR_API_KEY"))
		Expect(err.Error()).To(ContainSubstring("SIGNER_UUID"))
		Expect(err.Error()).To(ContainSubstring("TARGET_FID"))
		Expect(err.Error()).To(ContainSubstring("DUNE_QUERY_ID"))
	})

	It("rejects a non-numeric target fid", func() {
		setRequired()
		setEnv("TARGET_FID", "dwr")

		_, err := config.Load()
		Expect(err).To(MatchError(ContainSubstring("TARGET_FID")))
	})

	It("clamps the batch size to what the relationship API accepts", func() {
		setRequired()
		setEnv("BATCH_SIZE", "500")
		setEnv("MAX_CONCURRENCY", "0")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Batch.Size).To(Equal(config.MaxBatchSize))
		Expect(cfg.Batch.MaxConcurrency).To(Equal(1))
	})

	It("never allows more than five requests in flight", func() {
		setRequired()
		setEnv("MAX_CONCURRENCY", "20")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Batch.MaxConcurrency).To(Equal(config.MaxConcurrency))
		Expect(cfg.Batch.MaxConcurrency).To(Equal(5))
	})

	DescribeTable("rejects malformed numeric and duration values",
		func(key, value string) {
			setRequired()
			setEnv(key, value)

			_, err := config.Load()
			Expect(err).To(MatchError(ContainSubstring(key)))
		},
		Entry("poll attempts", "MAX_POLL_ATTEMPTS", "abc"),
		Entry("batch size", "BATCH_SIZE", "ten"),
		Entry("concurrency", "MAX_CONCURRENCY", "5.5"),
		Entry("poll interval", "POLL_INTERVAL", "3"),
		Entry("http timeout", "HTTP_TIMEOUT", "soon"),
	)

	It("trims trailing slashes from base URLs and reads durations", func() {
		setRequired()
		setEnv("DUNE_BASE_URL", "http://localhost:9000/api/v1/")
		setEnv("POLL_INTERVAL", "250ms")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Dune.BaseURL).To(Equal("http://localhost:9000/api/v1"))
		Expect(cfg.Polling.Interval).To(Equal(250 * time.Millisecond))
	})

	It("rejects a non-positive poll bound", func() {
		setRequired()
		setEnv("MAX_POLL_ATTEMPTS", "-1")

		_, err := config.Load()
		Expect(err).To(MatchError(ContainSubstring("MAX_POLL_ATTEMPTS")))
	})
})

var _ = Describe("ParseFID", func() {
	DescribeTable("parses decimal fids",
		func(input string, expected domain.FID, ok bool) {
			fid, err := config.ParseFID(input)
			if !ok {
				Expect(err).To(HaveOccurred())
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(fid).To(Equal(expected))
		},
		Entry("plain number", "194", domain.FID(194), true),
		Entry("surrounding whitespace", " 194\n", domain.FID(194), true),
		Entry("negative number", "-1", domain.FID(0), false),
		Entry("empty string", "", domain.FID(0), false),
		Entry("letters", "abc", domain.FID(0), false),
	)
})

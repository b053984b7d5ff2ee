package clock_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/clock"
)

var _ = Describe("Clock", func() {
	It("freezes time in cache mode", func() {
		c := clock.New(true)
		Expect(clock.Format(c)).To(Equal("2023-09-27 00:00:00"))
		Expect(c.Now()).To(Equal(c.Now()))
	})

	It("follows the system clock otherwise", func() {
		before := time.Now()
		now := clock.New(false).Now()
		Expect(now).To(BeTemporally(">=", before))
	})
})

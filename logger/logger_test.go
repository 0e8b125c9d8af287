package logger_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/fscifa/totepipe/logger"
)

var _ = Describe("Logger", func() {
	log := logger.NewLogger("test-service", "debug", true)

	capture := func(fn func()) map[string]interface{} {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)
		fn()
		var actual map[string]interface{}
		_ = json.Unmarshal(logOutput.Bytes(), &actual)
		return actual
	}

	It("Should have `test-service` as service name", func() {
		actual := capture(func() { log.Info("Testing") })
		Expect(actual["service"]).To(Equal("test-service"))
	})

	It("Should have info as log level", func() {
		actual := capture(func() { log.Info("Testing") })
		Expect(actual["level"]).To(Equal("info"))
	})

	It("Should have warn as log level", func() {
		actual := capture(func() { log.Warn("Testing") })
		Expect(actual["level"]).To(Equal("warning"))
	})

	It("Should have error as log level with a stack trace", func() {
		actual := capture(func() { log.Error("Testing") })
		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should carry fields added by WithField", func() {
		child := log.WithField("run", "abc123")
		actual := capture(func() { child.Info("Testing") })
		Expect(actual["run"]).To(Equal("abc123"))
		Expect(actual["service"]).To(Equal("test-service"))
		Expect(actual["msg"]).To(Equal("Testing"))
	})
})

package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/spiflash/timing"
)

var _ = Describe("DBTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		recorder   *MockDataRecorder
		tracer     *DBTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		recorder = NewMockDataRecorder(mockCtrl)

		recorder.EXPECT().CreateTable(TaskTable, gomock.Any())
		tracer = NewDBTracer(timeTeller, recorder)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should write a finished task with its steps", func() {
		timeTeller.EXPECT().CurrentTime().Return(timing.VTimeInCycle(10))
		tracer.StartTask(Task{ID: "t", Kind: "req_in", What: "read", Location: "Bridge"})

		timeTeller.EXPECT().CurrentTime().Return(timing.VTimeInCycle(12))
		tracer.StepTask(Task{ID: "t", Steps: []TaskStep{{What: "burst_new"}}})

		recorder.EXPECT().InsertData(TaskTable, taskTableEntry{
			ID:        "t",
			Kind:      "req_in",
			What:      "read",
			Location:  "Bridge",
			StartTime: 10,
			EndTime:   90,
			Steps:     "burst_new",
		})

		timeTeller.EXPECT().CurrentTime().Return(timing.VTimeInCycle(90))
		tracer.EndTask(Task{ID: "t"})
	})

	It("should skip tasks that end before the range", func() {
		tracer.SetTimeRange(100, 0)

		timeTeller.EXPECT().CurrentTime().Return(timing.VTimeInCycle(10))
		tracer.StartTask(Task{ID: "t", Kind: "req_in", What: "read"})

		timeTeller.EXPECT().CurrentTime().Return(timing.VTimeInCycle(20))
		tracer.EndTask(Task{ID: "t"})
	})

	It("should skip tasks that start after the range", func() {
		tracer.SetTimeRange(0, 5)

		timeTeller.EXPECT().CurrentTime().Return(timing.VTimeInCycle(10))
		tracer.StartTask(Task{ID: "t", Kind: "req_in", What: "read"})

		tracer.EndTask(Task{ID: "t"})
	})

	It("should flush on termination", func() {
		recorder.EXPECT().Flush()
		tracer.Terminate()
	})
})

package pledgeflow

import (
	"pkt.systems/pledgeflow/internal/eventbus"
	"pkt.systems/pledgeflow/viewmodel"
)

type signalFanout struct {
	sinks []viewmodel.SignalSink
}

func (f signalFanout) OnSignal(signal eventbus.Signal) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnSignal(signal)
	}
}

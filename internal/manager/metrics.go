package manager

import "github.com/prometheus/client_golang/prometheus"

var commandsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "deebot_bridge_commands_total",
		Help: "Commands forwarded to the vendor cloud by kind and outcome",
	},
	[]string{"command", "outcome"},
)

// MetricsCollector exposes cached device state as Prometheus metrics.
// Collect never performs I/O; it reads the record cache only.
type MetricsCollector struct {
	manager *Manager

	devicesConnected prometheus.Gauge
	batteryPercent   *prometheus.GaugeVec
	online           *prometheus.GaugeVec
	state            *prometheus.GaugeVec
	errorCode        *prometheus.GaugeVec
}

func NewMetricsCollector(manager *Manager) *MetricsCollector {
	labels := []string{"device_id", "device_name", "model"}
	stateLabels := []string{"device_id", "device_name", "model", "state"}
	errorLabels := []string{"device_id", "device_name", "model", "error_code"}
	return &MetricsCollector{
		manager: manager,
		devicesConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deebot_bridge_devices_connected",
			Help: "Number of devices in the record cache",
		}),
		batteryPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "deebot_bridge_battery_percent",
			Help: "Battery percentage (0-100) from the last push event",
		}, labels),
		online: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "deebot_bridge_device_online",
			Help: "Whether the device is available (1=yes, 0=no)",
		}, labels),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "deebot_bridge_cleaning_state",
			Help: "Cleaning state (label) from the last push event",
		}, stateLabels),
		errorCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "deebot_bridge_error_code",
			Help: "Vacuum error code (label)",
		}, errorLabels),
	}
}

// Collectors returns every collector the bridge registers, including
// the shared command counter.
func Collectors(manager *Manager) []prometheus.Collector {
	return []prometheus.Collector{
		commandsTotal,
		NewMetricsCollector(manager),
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.devicesConnected.Describe(ch)
	c.batteryPercent.Describe(ch)
	c.online.Describe(ch)
	c.state.Describe(ch)
	c.errorCode.Describe(ch)
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	records := c.manager.Devices()

	c.devicesConnected.Set(float64(len(records)))
	c.batteryPercent.Reset()
	c.online.Reset()
	c.state.Reset()
	c.errorCode.Reset()

	for _, record := range records {
		labels := prometheus.Labels{
			"device_id":   record.DeviceID,
			"device_name": record.Name,
			"model":       record.Model,
		}
		if record.Battery != nil {
			c.batteryPercent.With(labels).Set(float64(*record.Battery))
		}
		if record.Online {
			c.online.With(labels).Set(1)
		} else {
			c.online.With(labels).Set(0)
		}
		if record.State != "" {
			c.state.With(prometheus.Labels{
				"device_id":   record.DeviceID,
				"device_name": record.Name,
				"model":       record.Model,
				"state":       string(record.State),
			}).Set(1)
		}
		if record.ErrorCode != "" {
			c.errorCode.With(prometheus.Labels{
				"device_id":   record.DeviceID,
				"device_name": record.Name,
				"model":       record.Model,
				"error_code":  record.ErrorCode,
			}).Set(1)
		}
	}

	c.devicesConnected.Collect(ch)
	c.batteryPercent.Collect(ch)
	c.online.Collect(ch)
	c.state.Collect(ch)
	c.errorCode.Collect(ch)
}

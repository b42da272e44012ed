package clmem

import "github.com/gogpu/clmem/device"

// Strategy is how a device exposes an object to the CPU while mapped.
type Strategy uint8

const (
	// StrategyDirect maps the object resource itself.
	StrategyDirect Strategy = iota
	// StrategyShadow maps a staging copy that is synchronized with the
	// resource on the first map and the last unmap.
	StrategyShadow
)

func (s Strategy) String() string {
	if s == StrategyDirect {
		return "Direct"
	}
	return "Shadow"
}

// ChooseStrategy decides how dev maps res. Linear storage on a unified
// memory device, or in a staging or user allocation, is mapped directly;
// everything else goes through a shadow.
func ChooseStrategy(dev device.Device, res device.Resource) Strategy {
	info := res.Info()
	cpuReachable := dev.UnifiedMemory() || info.Staging || info.User
	if cpuReachable && (info.Buffer || info.Linear) {
		return StrategyDirect
	}
	return StrategyShadow
}

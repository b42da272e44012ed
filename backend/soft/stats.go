package soft

import (
	"fmt"

	"github.com/gogpu/clmem/device"
)

// CommandKind identifies a command of the device command stream.
type CommandKind uint8

const (
	CmdCopyRegion CommandKind = iota
	CmdClearBuffer
	CmdClearTexture
	CmdClearImageBuffer
	CmdBufferSubData
	CmdTextureSubData
)

// String returns the command name.
func (k CommandKind) String() string {
	switch k {
	case CmdCopyRegion:
		return "CopyRegion"
	case CmdClearBuffer:
		return "ClearBuffer"
	case CmdClearTexture:
		return "ClearTexture"
	case CmdClearImageBuffer:
		return "ClearImageBuffer"
	case CmdBufferSubData:
		return "BufferSubData"
	case CmdTextureSubData:
		return "TextureSubData"
	default:
		return "Unknown"
	}
}

// Command records a submitted command.
type Command struct {
	Kind CommandKind
	// Src and Dst are resource ids. Src is zero for clears and uploads.
	Src, Dst uint64
	Box      device.Box
	Bytes    uint64
}

func (c Command) String() string {
	return fmt.Sprintf("%v %d->%d %v (%d bytes)", c.Kind, c.Src, c.Dst, c.Box, c.Bytes)
}

// Stats counts the work done by a device.
type Stats struct {
	// Live resources.
	Buffers  int
	Textures int

	// StagingCreated counts every staging resource ever created.
	StagingCreated uint64

	// Samplers is the number of live sampler states.
	Samplers int

	OpenTransfers int
	DirectMaps    uint64
	CoherentMaps  uint64
	NormalMaps    uint64
	// BounceMaps counts normal maps served through a temporary copy.
	BounceMaps uint64

	CopyRegions uint64
	Clears      uint64
	Uploads     uint64

	// Executed counts commands that left the queue.
	Executed uint64
	// Queued is the number of commands waiting in the stream.
	Queued int
}

func (s Stats) String() string {
	return fmt.Sprintf("Stats[buffers=%d textures=%d samplers=%d staging=%d transfers=%d maps(direct=%d coherent=%d normal=%d bounce=%d) copies=%d clears=%d uploads=%d executed=%d queued=%d]",
		s.Buffers, s.Textures, s.Samplers, s.StagingCreated, s.OpenTransfers,
		s.DirectMaps, s.CoherentMaps, s.NormalMaps, s.BounceMaps,
		s.CopyRegions, s.Clears, s.Uploads, s.Executed, s.Queued)
}

// Stats returns a snapshot of the device counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.Queued = d.cmds.Length()
	return s
}

// History returns the submitted commands, oldest first.
func (d *Device) History() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Command(nil), d.history...)
}

// ResetHistory forgets the submitted commands and zeroes the command and map
// counters.
func (d *Device) ResetHistory() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = nil
	d.stats.DirectMaps, d.stats.CoherentMaps, d.stats.NormalMaps, d.stats.BounceMaps = 0, 0, 0, 0
	d.stats.CopyRegions, d.stats.Clears, d.stats.Uploads, d.stats.Executed = 0, 0, 0, 0
}

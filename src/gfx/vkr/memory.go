// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

// MemoryType is one entry of the physical device memory type table.
type MemoryType struct {
	Flags vk.MemoryPropertyFlags
	Heap  uint32
}

// MemoryTable is a snapshot of the physical device memory properties.
type MemoryTable struct {
	Types []MemoryType
	Heaps []uint64
}

// FindMemoryType returns the first memory type allowed by filter whose
// flags include every bit of props.
func (t MemoryTable) FindMemoryType(filter uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	for idx := 0; idx < len(t.Types) && idx < 32; idx++ {
		if filter&(1<<uint(idx)) != 0 && t.Types[idx].Flags&props == props {
			return uint32(idx), nil
		}
	}
	return 0, errors.WithStack(ErrNoMemoryType)
}

// TotalHeap sums the size of every memory heap in bytes.
func (t MemoryTable) TotalHeap() uint64 {
	var total uint64
	for _, h := range t.Heaps {
		total += h
	}
	return total
}

// Memory defines a usable memory region.
type Memory struct {
	driver      Driver
	device      vk.Device
	memory      vk.DeviceMemory
	len, offset uint
	mapped      unsafe.Pointer
}

// Len returns the length of assigned memory.
func (m *Memory) Len() uint {
	return m.len
}

// Offset returns the start location of assigned memory.
func (m *Memory) Offset() uint {
	return m.offset
}

// Get returns the vulkan memory handle.
func (m *Memory) Get() vk.DeviceMemory {
	return m.memory
}

// Map maps the entire region and returns it as a byte slice. Mapping
// an already mapped region returns the existing mapping.
func (m *Memory) Map() ([]byte, error) {
	if m.mapped == nil {
		ptr, err := m.driver.MapMemory(m.device, m.memory, vk.DeviceSize(m.offset), vk.DeviceSize(m.len))
		if err != nil {
			return nil, err
		}
		m.mapped = ptr
	}
	return unsafe.Slice((*byte)(m.mapped), int(m.len)), nil
}

// Write copies data to the start of the region. The region is left
// mapped only if it was mapped before the call.
func (m *Memory) Write(data []byte) error {
	if uint(len(data)) > m.len {
		return errors.Errorf("write of %d bytes into %d byte region", len(data), m.len)
	}
	persistent := m.mapped != nil
	dst, err := m.Map()
	if err != nil {
		return err
	}
	copy(dst, data)
	if !persistent {
		m.Unmap()
	}
	return nil
}

// Unmap removes the memory mapping if it was mapped.
func (m *Memory) Unmap() {
	if m.mapped != nil {
		m.driver.UnmapMemory(m.device, m.memory)
		m.mapped = nil
	}
}

// Release frees memory after unmapping it if previously mapped.
func (m *Memory) Release() {
	if m.memory == vk.NullDeviceMemory {
		return
	}
	m.Unmap()
	m.driver.FreeMemory(m.device, m.memory)
	m.memory = vk.NullDeviceMemory
}

// NewMemoryAllocator creates a memory allocator for the logical
// device using the memory table negotiated for it.
func NewMemoryAllocator(driver Driver, device vk.Device, table MemoryTable) *MemoryAllocator {
	return &MemoryAllocator{
		driver: driver,
		device: device,
		table:  table,
	}
}

// MemoryAllocator is responsible returning usable
// memory for any resources that may need it.
type MemoryAllocator struct {
	driver Driver
	device vk.Device
	table  MemoryTable
}

// Malloc returns a usable memory chunk ready for use.
func (ma *MemoryAllocator) Malloc(req vk.MemoryRequirements, props vk.MemoryPropertyFlags) (Memory, error) {
	memTypeIdx, err := ma.table.FindMemoryType(req.MemoryTypeBits, props)
	if err != nil {
		return Memory{}, err
	}

	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memTypeIdx,
	}

	memory, err := ma.driver.AllocateMemory(ma.device, &mai)
	if err != nil {
		return Memory{}, err
	}

	return Memory{
		driver: ma.driver,
		device: ma.device,
		memory: memory,
		len:    uint(req.Size),
	}, nil
}

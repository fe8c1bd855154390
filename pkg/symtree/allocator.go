package symtree

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Sumatoshi-tech/symtree/pkg/safeconv"
)

// growCapacityNumerator and growCapacityDenominator define the 3/2 growth factor for storage.
const (
	growCapacityNumerator   = 3
	growCapacityDenominator = 2
)

// Hibernated column layout. Offset caches are not persisted, a booted
// allocator starts with every cache invalid.
const (
	colParent = iota
	colLeft
	colRight
	colContained
	colKind
	colSymbols
	colChars
	colLeftSymbols
	colLeftChars
	colEdgeChars
	colIncarnation
	colTextLen
	columnCount
)

const (
	blockGaps  = columnCount
	blockText  = columnCount + 1
	blockCount = columnCount + 2
)

var arenaSeq atomic.Uint32

// Allocator is the node arena shared by one or more trees.
type Allocator struct {
	storage              []node
	gaps                 map[uint32]bool
	hibernatedData       [blockCount][]byte
	HibernationThreshold int
	hibernatedStorageLen int
	hibernatedGapsLen    int
	hibernatedTextLen    int
	id                   uint32
}

// NewAllocator creates a new arena. Slot 0 is reserved as the nil link.
func NewAllocator() *Allocator {
	return &Allocator{
		storage: []node{},
		gaps:    map[uint32]bool{},
		id:      arenaSeq.Add(1),
	}
}

// ID identifies the arena inside NodeID values.
func (allocator *Allocator) ID() uint32 {
	return allocator.id
}

// Size returns the currently allocated size.
func (allocator *Allocator) Size() int {
	return len(allocator.storage)
}

// Used returns the number of live nodes in the allocator.
func (allocator *Allocator) Used() int {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}

	if len(allocator.storage) == 0 {
		return 0
	}

	return len(allocator.storage) - len(allocator.gaps) - 1
}

// Hibernated reports whether the arena is compressed.
func (allocator *Allocator) Hibernated() bool {
	return allocator.storage == nil
}

// Clone copies an existing allocator. Indices stay valid in the copy.
func (allocator *Allocator) Clone() *Allocator {
	if allocator.storage == nil {
		panic("cannot clone a hibernated allocator")
	}

	newAllocator := &Allocator{
		HibernationThreshold: allocator.HibernationThreshold,
		storage:              make([]node, len(allocator.storage), cap(allocator.storage)),
		gaps:                 make(map[uint32]bool, len(allocator.gaps)),
		id:                   arenaSeq.Add(1),
	}
	copy(newAllocator.storage, allocator.storage)
	maps.Copy(newAllocator.gaps, allocator.gaps)

	return newAllocator
}

// Hibernate compresses the arena column by column and releases the slice.
func (allocator *Allocator) Hibernate() {
	if allocator.hibernatedStorageLen > 0 {
		panic("cannot hibernate an already hibernated Allocator")
	}

	if allocator.storage == nil || len(allocator.storage) < allocator.HibernationThreshold {
		return
	}

	allocator.hibernatedStorageLen = len(allocator.storage)
	if allocator.hibernatedStorageLen == 0 {
		allocator.storage = nil

		return
	}

	columns := [columnCount][]uint32{}

	for idx := range columns {
		columns[idx] = make([]uint32, len(allocator.storage))
	}

	var text strings.Builder

	// Deinterleaving groups similar values and compresses better.
	for idx := range allocator.storage {
		nd := &allocator.storage[idx]
		columns[colParent][idx] = nd.parent
		columns[colLeft][idx] = nd.left
		columns[colRight][idx] = nd.right
		columns[colContained][idx] = nd.contained
		columns[colKind][idx] = uint32(nd.kind)
		columns[colSymbols][idx] = safeconv.MustIntToUint32(nd.symbols)
		columns[colChars][idx] = safeconv.MustIntToUint32(nd.chars)
		columns[colLeftSymbols][idx] = safeconv.MustIntToUint32(nd.leftSymbols)
		columns[colLeftChars][idx] = safeconv.MustIntToUint32(nd.leftChars)
		columns[colEdgeChars][idx] = safeconv.MustIntToUint32(nd.edgeChars)
		columns[colIncarnation][idx] = nd.incarnation
		columns[colTextLen][idx] = safeconv.MustIntToUint32(len(nd.text))
		text.WriteString(nd.text)
	}

	allocator.storage = nil

	wg := &sync.WaitGroup{}
	wg.Add(len(columns) + 2)

	for idx, column := range columns {
		go func(colIdx int, col []uint32) {
			defer wg.Done()

			allocator.hibernatedData[colIdx] = CompressUInt32Slice(col)
		}(idx, column)
	}

	go func() {
		defer wg.Done()

		allocator.hibernatedGapsLen = len(allocator.gaps)
		if allocator.hibernatedGapsLen > 0 {
			gapsBuffer := make([]uint32, 0, len(allocator.gaps))
			for key := range allocator.gaps {
				gapsBuffer = append(gapsBuffer, key)
			}

			allocator.hibernatedData[blockGaps] = CompressUInt32Slice(gapsBuffer)
		}

		allocator.gaps = nil
	}()

	go func() {
		defer wg.Done()

		allocator.hibernatedTextLen = text.Len()
		allocator.hibernatedData[blockText] = CompressBytes([]byte(text.String()))
	}()

	wg.Wait()
}

// Boot performs the opposite of Hibernate(): decompresses and restores the arena.
func (allocator *Allocator) Boot() error {
	if allocator.storage == nil && allocator.hibernatedStorageLen == 0 {
		allocator.storage = []node{}
		allocator.gaps = map[uint32]bool{}

		return nil
	}

	if allocator.hibernatedStorageLen == 0 {
		// Not hibernated.
		return nil
	}

	if allocator.hibernatedData[colParent] == nil {
		panic("cannot boot an allocator without hibernated data")
	}

	columns := [columnCount][]uint32{}
	errs := make([]error, blockCount)
	gaps := map[uint32]bool{}

	var text []byte

	wg := &sync.WaitGroup{}
	wg.Add(len(columns) + 2)

	for idx := range columns {
		go func(colIdx int) {
			defer wg.Done()

			columns[colIdx] = make([]uint32, allocator.hibernatedStorageLen)
			errs[colIdx] = DecompressUInt32Slice(allocator.hibernatedData[colIdx], columns[colIdx])
		}(idx)
	}

	go func() {
		defer wg.Done()

		if allocator.hibernatedGapsLen == 0 {
			return
		}

		buffer := make([]uint32, allocator.hibernatedGapsLen)

		errs[blockGaps] = DecompressUInt32Slice(allocator.hibernatedData[blockGaps], buffer)
		for _, key := range buffer {
			gaps[key] = true
		}
	}()

	go func() {
		defer wg.Done()

		text, errs[blockText] = DecompressBytes(allocator.hibernatedData[blockText], allocator.hibernatedTextLen)
	}()

	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		return fmt.Errorf("boot allocator: %w", err)
	}

	capSize := (allocator.hibernatedStorageLen * growCapacityNumerator) / growCapacityDenominator
	storage := make([]node, allocator.hibernatedStorageLen, capSize)
	textPos := 0

	for idx := range storage {
		nd := &storage[idx]
		nd.parent = columns[colParent][idx]
		nd.left = columns[colLeft][idx]
		nd.right = columns[colRight][idx]
		nd.contained = columns[colContained][idx]
		nd.kind = Kind(columns[colKind][idx])
		nd.symbols = int(columns[colSymbols][idx])
		nd.chars = int(columns[colChars][idx])
		nd.leftSymbols = int(columns[colLeftSymbols][idx])
		nd.leftChars = int(columns[colLeftChars][idx])
		nd.edgeChars = int(columns[colEdgeChars][idx])
		nd.incarnation = columns[colIncarnation][idx]
		nd.offsetCache = -1

		textLen := int(columns[colTextLen][idx])
		if textPos+textLen > len(text) {
			return fmt.Errorf("boot allocator: %w: text column overflows", ErrCorruptBlock)
		}

		nd.text = string(text[textPos : textPos+textLen])
		textPos += textLen
	}

	allocator.storage = storage
	allocator.gaps = gaps
	allocator.hibernatedData = [blockCount][]byte{}
	allocator.hibernatedStorageLen = 0
	allocator.hibernatedGapsLen = 0
	allocator.hibernatedTextLen = 0

	return nil
}

// Serialize writes the hibernated allocator on disk. The in-memory hibernated
// data is kept, so Boot remains possible afterwards.
func (allocator *Allocator) Serialize(path string) error {
	if allocator.storage != nil {
		panic("serialization requires the hibernated state")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	defer file.Close()

	writer := bufio.NewWriter(file)

	header := []int{allocator.hibernatedStorageLen, allocator.hibernatedGapsLen, allocator.hibernatedTextLen}
	for idx, value := range header {
		err = writeVarint(writer, value)
		if err != nil {
			return fmt.Errorf("write header %d: %w", idx, err)
		}
	}

	for idx, block := range allocator.hibernatedData {
		err = writeVarint(writer, len(block))
		if err != nil {
			return fmt.Errorf("write data len %d: %w", idx, err)
		}

		_, err = writer.Write(block)
		if err != nil {
			return fmt.Errorf("write data %d: %w", idx, err)
		}
	}

	err = writer.Flush()
	if err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	return nil
}

// Deserialize reads a hibernated allocator from disk. Call Boot to use it.
func (allocator *Allocator) Deserialize(path string) error {
	if allocator.storage != nil && len(allocator.storage) > 0 {
		panic("deserialization requires an empty or hibernated allocator")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}

	defer file.Close()

	reader := bufio.NewReader(file)

	var header [3]int

	for idx := range header {
		header[idx], err = readVarint(reader)
		if err != nil {
			return fmt.Errorf("read header %d: %w", idx, err)
		}
	}

	var data [blockCount][]byte

	for idx := range data {
		dataLen, readErr := readVarint(reader)
		if readErr != nil {
			return fmt.Errorf("read data len %d: %w", idx, readErr)
		}

		data[idx] = make([]byte, dataLen)

		bytesRead, readErr := io.ReadFull(reader, data[idx])
		if readErr != nil {
			return fmt.Errorf("%w %d: %d instead of %d: %w", ErrIncompleteRead, idx, bytesRead, dataLen, readErr)
		}

		if dataLen == 0 {
			data[idx] = nil
		}
	}

	allocator.storage = nil
	allocator.gaps = nil
	allocator.hibernatedStorageLen = header[0]
	allocator.hibernatedGapsLen = header[1]
	allocator.hibernatedTextLen = header[2]
	allocator.hibernatedData = data

	return nil
}

func writeVarint(writer io.Writer, value int) error {
	var buf [binary.MaxVarintLen64]byte

	_, err := writer.Write(binary.AppendUvarint(buf[:0], uint64(safeconv.MustIntToUint(value))))

	return err
}

func readVarint(reader io.ByteReader) (int, error) {
	value, err := binary.ReadUvarint(reader)
	if err != nil {
		return 0, err
	}

	if value > math.MaxInt32 {
		return 0, fmt.Errorf("%w: varint %d is out of range", ErrCorruptBlock, value)
	}

	return int(value), nil
}

func (allocator *Allocator) malloc() uint32 {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}

	if len(allocator.gaps) > 0 {
		var key uint32

		for key = range allocator.gaps {
			break
		}

		delete(allocator.gaps, key)

		return key
	}

	nodeLen := len(allocator.storage)
	if nodeLen == 0 {
		// Zero is reserved.
		allocator.storage = append(allocator.storage, node{offsetCache: -1})
		nodeLen = 1
	}

	if nodeLen == math.MaxUint32 {
		panic("the node arena has reached the maximum value for uint32")
	}

	allocator.storage = append(allocator.storage, node{offsetCache: -1})

	return safeconv.MustIntToUint32(nodeLen)
}

func (allocator *Allocator) free(nodeIdx uint32) {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}

	if nodeIdx == 0 {
		panic("node #0 is special and cannot be deallocated")
	}

	_, exists := allocator.gaps[nodeIdx]
	doAssert(!exists)

	nd := &allocator.storage[nodeIdx]
	nd.reset()
	nd.incarnation++

	allocator.gaps[nodeIdx] = true
}

// live reports whether the slot holds a node of the given incarnation.
func (allocator *Allocator) live(index, incarnation uint32) bool {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}

	if index == 0 || int(index) >= len(allocator.storage) {
		return false
	}

	nd := &allocator.storage[index]

	return nd.kind != kindFree && nd.incarnation == incarnation
}

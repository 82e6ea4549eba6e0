package remote

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

const (
	LayerTargetSize = 5 * 1024 * 1024  // 5MB target
	LayerMinSize    = 2 * 1024 * 1024  // 2MB minimum before combining
	LayerSoftMax    = 10 * 1024 * 1024 // 10MB soft maximum
	maxKeyLen       = 64 * 1024
)

// GroupByPrefix buckets objects by the first two hex digits of their id.
func GroupByPrefix(objects map[string][]byte) map[string]map[string][]byte {
	result := make(map[string]map[string][]byte)
	for key, data := range objects {
		prefix := extractPrefix(key)
		if result[prefix] == nil {
			result[prefix] = make(map[string][]byte)
		}
		result[prefix][key] = data
	}
	return result
}

func extractPrefix(key string) string {
	if len(key) >= 2 {
		return key[:2]
	}
	return "00"
}

func PrefixSize(objects map[string][]byte) int64 {
	var total int64
	for _, data := range objects {
		total += int64(len(data))
	}
	return total
}

// PackLayer packs objects in key order: [keylen uvarint][key][length 8B][data]...
func PackLayer(objects map[string][]byte) []byte {
	keys := make([]string, 0, len(objects))
	for k := range objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	varBuf := make([]byte, binary.MaxVarintLen64)
	lenBuf := make([]byte, 8)

	for _, key := range keys {
		data := objects[key]

		n := binary.PutUvarint(varBuf, uint64(len(key)))
		buf.Write(varBuf[:n])
		buf.WriteString(key)

		binary.BigEndian.PutUint64(lenBuf, uint64(len(data)))
		buf.Write(lenBuf)

		buf.Write(data)
	}
	return buf.Bytes()
}

func UnpackLayer(data []byte) (map[string][]byte, error) {
	result := make(map[string][]byte)
	r := bufio.NewReader(bytes.NewReader(data))

	for {
		keyLen, err := binary.ReadUvarint(r)
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read key length: %w", err)
		}
		if keyLen == 0 || keyLen > maxKeyLen {
			return nil, fmt.Errorf("bad key length %d", keyLen)
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}

		var length uint64
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("read length: %w", err)
		}
		if length > uint64(len(data)) {
			return nil, fmt.Errorf("object %q: length %d exceeds layer", key, length)
		}

		object := make([]byte, length)
		if _, err := io.ReadFull(r, object); err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}

		result[string(key)] = object
	}
}

// BuildLayerPlan groups prefixes, in order, into layers of roughly
// LayerSoftMax bytes. Small groups may grow to twice that to avoid tiny
// layers.
func BuildLayerPlan(prefixSizes map[string]int64) [][]string {
	prefixes := make([]string, 0, len(prefixSizes))
	for p := range prefixSizes {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	var layers [][]string
	var current []string
	var size int64

	for _, prefix := range prefixes {
		prefixSize := prefixSizes[prefix]

		if len(current) == 0 {
			current = append(current, prefix)
			size = prefixSize
			continue
		}

		newSize := size + prefixSize
		if newSize <= LayerSoftMax {
			current = append(current, prefix)
			size = newSize
		} else if size < LayerMinSize && newSize <= 2*LayerSoftMax {
			current = append(current, prefix)
			size = newSize
		} else {
			layers = append(layers, current)
			current = []string{prefix}
			size = prefixSize
		}
	}

	if len(current) > 0 {
		layers = append(layers, current)
	}

	return layers
}

func CollectPrefixObjects(prefixes []string, byPrefix map[string]map[string][]byte) map[string][]byte {
	result := make(map[string][]byte)
	for _, prefix := range prefixes {
		for key, data := range byPrefix[prefix] {
			result[key] = data
		}
	}
	return result
}

func CalculatePrefixSizes(byPrefix map[string]map[string][]byte) map[string]int64 {
	result := make(map[string]int64)
	for prefix, objects := range byPrefix {
		result[prefix] = PrefixSize(objects)
	}
	return result
}

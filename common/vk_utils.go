package common

import (
	"bytes"
	"encoding/binary"
	"log"
	"unsafe"
)

// Provides general helper functions for comparisons and conversions

// IsSubset checks that every entry of a is contained in b. This is mainly used to check for extension and layer
// support during the initialization process.
func IsSubset(a []string, b []string) bool {
	for _, _a := range a {
		isIn := false
		for _, _b := range b {
			if TrimTerminator(_a) == TrimTerminator(_b) {
				isIn = true
				break
			}
		}
		if !isIn {
			return false
		}
	}
	return true
}

// RawBytes writes a given object as its little endian byte representation voiding all type information in the
// process. The value must only contain fixed size fields.
func RawBytes(p interface{}) []byte {
	buf := new(bytes.Buffer)
	err := binary.Write(buf, binary.LittleEndian, p)
	if err != nil {
		log.Printf("binary.Write failed: %v", err)
	}
	return buf.Bytes()
}

// TerminatedStr ensures the given string is \x00 terminated as vulkan expects this in certain structs
func TerminatedStr(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\x00' {
		return s + "\x00"
	}
	return s
}

// TerminatedStrs returns a terminated copy, the input is left untouched as it is usually a package level list.
func TerminatedStrs(strs []string) []string {
	out := make([]string, len(strs))
	for i := range strs {
		out[i] = TerminatedStr(strs[i])
	}
	return out
}

func TrimTerminator(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\x00' {
		return s[:len(s)-1]
	}
	return s
}

// AsUint32Arr reinterprets SPIR-V bytes as words, trailing bytes that do not fill a word are dropped.
// It should be equivalent to C++ 'reinterpret_cast<const uint32_t*>(code.data());'
func AsUint32Arr(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

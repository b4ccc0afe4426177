package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestDictionaryGenerateIsValidJSON(t *testing.T) {
	InitCoreCommands()
	RegisterMotorCommands()

	d := GetGlobalDictionary()
	d.BuildDictionary()
	data := d.Generate()

	var parsed struct {
		Version   string            `json:"version"`
		Config    map[string]string `json:"config"`
		Commands  map[string]int    `json:"commands"`
		Responses map[string]int    `json:"responses"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("dictionary is not valid JSON: %v\n%s", err, data)
	}

	if parsed.Version == "" {
		t.Error("dictionary missing version")
	}
	if _, ok := parsed.Config["STEPPER_MAX_COUNT"]; !ok {
		t.Error("dictionary missing STEPPER_MAX_COUNT constant")
	}

	// The bootstrap pair must sit at its fixed IDs
	if id, ok := parsed.Responses["identify_response offset=%u data=%*s"]; !ok || id != 0 {
		t.Errorf("identify_response at ID %d, want 0", id)
	}
	if id, ok := parsed.Commands["identify offset=%u count=%c"]; !ok || id != 1 {
		t.Errorf("identify at ID %d, want 1", id)
	}

	// Motor commands are announced with their argument formats
	found := false
	for format := range parsed.Commands {
		if strings.HasPrefix(format, "config_motor ") {
			found = true
		}
	}
	if !found {
		t.Error("dictionary does not announce config_motor")
	}
}

func TestDictionaryGetChunk(t *testing.T) {
	d := GetGlobalDictionary()
	d.BuildDictionary()
	data := d.Generate()

	// Chunked reads reassemble the full dictionary
	var assembled []byte
	offset := uint32(0)
	for {
		chunk := d.GetChunk(offset, 40)
		if len(chunk) == 0 {
			break
		}
		assembled = append(assembled, chunk...)
		offset += uint32(len(chunk))
	}
	if !bytes.Equal(assembled, data) {
		t.Errorf("chunked reads differ from Generate: %d vs %d bytes", len(assembled), len(data))
	}

	// Out-of-range reads are empty, not errors
	if chunk := d.GetChunk(uint32(len(data))+100, 10); len(chunk) != 0 {
		t.Errorf("expected empty chunk past the end, got %d bytes", len(chunk))
	}
}

func TestDictionaryEnumerations(t *testing.T) {
	d := NewDictionary(NewCommandRegistry())
	d.AddEnumeration("pin", []string{"PA0", "PA1", ""})
	d.AddConstant("MCU", "rp2040")

	var parsed struct {
		Enumerations map[string]map[string]int `json:"enumerations"`
	}
	if err := json.Unmarshal(d.Generate(), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	pins := parsed.Enumerations["pin"]
	if pins["PA0"] != 0 || pins["PA1"] != 1 {
		t.Errorf("pin enumeration = %v", pins)
	}
	if _, ok := pins[""]; ok {
		t.Error("empty enumeration value should be omitted")
	}
}

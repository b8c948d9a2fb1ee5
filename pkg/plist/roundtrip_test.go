package plist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

// Canonical inputs survive JSON -> plist -> JSON byte for byte.
func TestRoundTrip_Canonical(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`{"@type":"updateAuthorizationState","authorization_state":{"@type":"authorizationStateWaitTdlibParameters"}}`,
		`{"@type":"getTextEntities","text":"@telegram /test_command https://telegram.org telegram.me","@extra":["5",7.0]}`,
		`{"z":1,"a":2,"m":3}`,
		`[7.0,7,-0.5,1.0e5,2.5e-3]`,
		`[true,false,null,{},[]]`,
		`{"false":false,"":null}`,
		`"tab\there\nquote\" backslash\\ esc\u001b nul\u0000"`,
		`{"text":"日本語 😀","entities":[{"offset":0,"length":3}]}`,
	}

	for _, input := range inputs {
		pair := NewPair(0, 0)
		if err := FromJSON(&pair.Src, []byte(input)); err != nil {
			t.Fatalf("FromJSON(%q): %v", input, err)
		}
		if err := ToJSON(&pair.Dst, pair.Src.Bytes()); err != nil {
			t.Fatalf("ToJSON(%q): %v", pair.Src.String(), err)
		}
		if got := pair.Dst.String(); got != input {
			t.Errorf("round trip of %q\n got %q\nvia %q", input, got, pair.Src.String())
		}
	}
}

// Non-canonical inputs survive with the same decoded value.
func TestRoundTrip_Value(t *testing.T) {
	t.Parallel()

	inputs := []string{
		` { "a" : [ 1 , 2 , 3 ] , "b" : { "c" : "é\/" } } `,
		`{"big":12345678901234567890,"neg":-42,"f":0.125}`,
		`["😀","\b\f\r"]`,
	}

	for _, input := range inputs {
		var plistText, jsonText Buffer
		if err := FromJSON(&plistText, []byte(input)); err != nil {
			t.Fatalf("FromJSON(%q): %v", input, err)
		}
		if err := ToJSON(&jsonText, plistText.Bytes()); err != nil {
			t.Fatalf("ToJSON(%q): %v", plistText.String(), err)
		}
		if want, got := decode(t, input), decode(t, jsonText.String()); !reflect.DeepEqual(got, want) {
			t.Errorf("round trip of %q decoded to %#v, want %#v", input, got, want)
		}
	}
}

func decode(t *testing.T, text string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", text, err)
	}
	return v
}

func TestRoundTrip_Concurrent(t *testing.T) {
	t.Parallel()

	const workers = 8
	const messages = 200

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pair := NewPair(1<<16, 6<<16)
			defer pair.Release()
			for i := range messages {
				pair.Reset()
				input := fmt.Sprintf(`{"@type":"message","worker":%d,"seq":%d,"text":"payload %d"}`, w, i, i)
				if err := FromJSON(&pair.Src, []byte(input)); err != nil {
					errs <- err
					return
				}
				if err := ToJSON(&pair.Dst, pair.Src.Bytes()); err != nil {
					errs <- err
					return
				}
				if pair.Dst.String() != input {
					errs <- fmt.Errorf("worker %d message %d: got %q", w, i, pair.Dst.String())
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

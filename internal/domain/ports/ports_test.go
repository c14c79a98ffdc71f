package ports

import (
	"context"
	"reflect"
	"testing"

	"mediagate/internal/domain"
)

func TestExtractorInterface(t *testing.T) {
	typ := reflect.TypeOf((*Extractor)(nil)).Elem()

	assertMethod(t, typ, "Name", nil, []reflect.Type{reflect.TypeOf("")})
	assertMethod(t, typ, "Extract", []reflect.Type{
		contextType(),
		reflect.TypeOf(ExtractInput{}),
	}, []reflect.Type{errorType()})
}

func TestFormatListerInterface(t *testing.T) {
	typ := reflect.TypeOf((*FormatLister)(nil)).Elem()

	assertMethod(t, typ, "ListFormats", []reflect.Type{
		contextType(),
		reflect.TypeOf(""),
	}, []reflect.Type{
		reflect.SliceOf(reflect.TypeOf(domain.FormatDescriptor{})),
		errorType(),
	})
}

func TestMetadataAPIInterface(t *testing.T) {
	typ := reflect.TypeOf((*MetadataAPI)(nil)).Elem()

	assertMethod(t, typ, "Lookup", []reflect.Type{
		contextType(),
		reflect.TypeOf(""),
	}, []reflect.Type{
		reflect.TypeOf(ContentInfo{}),
		errorType(),
	})
}

func TestHistoryRepositoryInterface(t *testing.T) {
	typ := reflect.TypeOf((*HistoryRepository)(nil)).Elem()

	assertMethod(t, typ, "Upsert", []reflect.Type{contextType(), reflect.TypeOf(domain.DownloadRecord{})}, []reflect.Type{errorType()})
	assertMethod(t, typ, "Get", []reflect.Type{contextType(), reflect.TypeOf("")}, []reflect.Type{reflect.TypeOf(domain.DownloadRecord{}), errorType()})
	assertMethod(t, typ, "ListRecent", []reflect.Type{contextType(), reflect.TypeOf(0)}, []reflect.Type{reflect.SliceOf(reflect.TypeOf(domain.DownloadRecord{})), errorType()})
	assertMethod(t, typ, "Delete", []reflect.Type{contextType(), reflect.TypeOf("")}, []reflect.Type{errorType()})
}

func assertMethod(t *testing.T, typ reflect.Type, name string, in []reflect.Type, out []reflect.Type) {
	t.Helper()
	method, ok := typ.MethodByName(name)
	if !ok {
		t.Fatalf("missing method %s", name)
	}

	wantIn := len(in)
	if method.Type.NumIn() != wantIn {
		t.Fatalf("%s NumIn = %d, want %d", name, method.Type.NumIn(), wantIn)
	}
	for i, typIn := range in {
		if got := method.Type.In(i); got != typIn {
			t.Fatalf("%s In[%d] = %s, want %s", name, i, got, typIn)
		}
	}

	if method.Type.NumOut() != len(out) {
		t.Fatalf("%s NumOut = %d, want %d", name, method.Type.NumOut(), len(out))
	}
	for i, typOut := range out {
		if got := method.Type.Out(i); got != typOut {
			t.Fatalf("%s Out[%d] = %s, want %s", name, i, got, typOut)
		}
	}
}

func contextType() reflect.Type {
	return reflect.TypeOf((*context.Context)(nil)).Elem()
}

func errorType() reflect.Type {
	return reflect.TypeOf((*error)(nil)).Elem()
}

// api/oteldemo/schema.go
package oteldemo

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/bufbuild/protocompile"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	protoFile = "demo.proto"

	// ServiceName 是 ShippingService 的全限定名
	ServiceName = "oteldemo.ShippingService"

	MethodGetQuote  = "GetQuote"
	MethodShipOrder = "ShipOrder"
)

//go:embed demo.proto
var demoProto string

// Schema 持有编译后的 ShippingService 描述符。
// 契约由 demo.proto 给定，启动时编译一次，之后只读，可并发使用。
type Schema struct {
	File      protoreflect.FileDescriptor
	Service   protoreflect.ServiceDescriptor
	GetQuote  protoreflect.MethodDescriptor
	ShipOrder protoreflect.MethodDescriptor
}

// Load compiles the embedded contract and resolves the shipping service descriptors.
func Load(ctx context.Context) (*Schema, error) {
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(map[string]string{
				protoFile: demoProto,
			}),
		}),
	}

	files, err := compiler.Compile(ctx, protoFile)
	if err != nil {
		return nil, errors.Wrap(err, "compile shipping contract")
	}
	if len(files) != 1 {
		return nil, fmt.Errorf("expected 1 compiled file, got %d", len(files))
	}
	file := files[0]

	svc := file.Services().ByName(protoreflect.Name("ShippingService"))
	if svc == nil {
		return nil, fmt.Errorf("service %s not found in %s", ServiceName, protoFile)
	}

	s := &Schema{
		File:      file,
		Service:   svc,
		GetQuote:  svc.Methods().ByName(MethodGetQuote),
		ShipOrder: svc.Methods().ByName(MethodShipOrder),
	}
	if s.GetQuote == nil || s.ShipOrder == nil {
		return nil, fmt.Errorf("service %s is missing a method", ServiceName)
	}
	return s, nil
}

// FullMethod 返回 gRPC 调用路径，例如 /oteldemo.ShippingService/GetQuote
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

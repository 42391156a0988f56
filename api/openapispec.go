/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/abi-codec/abi"
	"github.com/icon-project/abi-codec/contract"
)

const (
	openapi3Version          = "3.0.3"
	infoTitle                = "ABI Codec - OpenAPI " + openapi3Version
	infoDefaultVersion       = "0.1.0"
	tagMethod                = "Method"
	tagCodec                 = "Codec"
	tagNetwork               = "Network"
	tagMonitor               = "Monitor"
	schemaRefPrefix          = "#/components/schemas/"
	schemaTypeDescriptor     = "TypeDescriptor"
	schemaMethodDescriptor   = "MethodDescriptor"
	schemaMethodInfo         = "MethodInfo"
	schemaMethodInfos        = "MethodInfos"
	schemaMethodPage         = "MethodPage"
	schemaEncodeRequest      = "EncodeRequest"
	schemaEncodeResponse     = "EncodeResponse"
	schemaDecodeRequest      = "DecodeRequest"
	schemaDecoded            = "Decoded"
	schemaTxDecodeResponse   = "TxDecodeResponse"
	schemaErrorResponse      = "ErrorResponse"
	schemaUndecodableError   = "UndecodableError"
	schemaInteger            = "Integer"
	schemaAddress            = "Address"
	schemaHexData            = "HexData"
	parameterRefPrefix       = "#/components/parameters/"
	methodSchemaSuffixLength = 8
)

var (
	infoLicenseApache = &openapi3.License{
		Name: "Apache 2.0",
		URL:  "http://www.apache.org/licenses/LICENSE-2.0.html",
	}
	externalDocs = &openapi3.ExternalDocs{
		Description: "Contract ABI Specification",
		URL:         "https://docs.soliditylang.org/en/latest/abi-spec.html",
	}
	integerSchema = openapi3.NewOneOfSchema(
		openapi3.NewStringSchema().WithPattern("^(0x|\\-0x)(0|[1-9a-f][0-9a-f]*)$"),
		openapi3.NewStringSchema().WithPattern("^(|\\-)(0|[1-9][0-9]*)$"),
		openapi3.NewIntegerSchema(),
	)
	booleanSchema  = openapi3.NewBoolSchema()
	stringSchema   = openapi3.NewStringSchema()
	hexDataSchema  = openapi3.NewStringSchema().WithPattern("^0x([0-9a-fA-F][0-9a-fA-F])*$")
	addressSchema  = openapi3.NewStringSchema().WithPattern("^0x[0-9a-fA-F]{40}$")
	selectorSchema = openapi3.NewStringSchema().WithPattern("^0x[0-9a-fA-F]{8}$")
	defaultSchemas = map[string]*openapi3.Schema{
		schemaTypeDescriptor:   newTypeDescriptorSchema(),
		schemaMethodDescriptor: newMethodDescriptorSchema(),
		schemaMethodInfo:       newMethodInfoSchema(),
		schemaMethodInfos:      openapi3.NewArraySchema().WithItems(newMethodInfoSchema()),
		schemaMethodPage:       newMethodPageSchema(),
		schemaEncodeRequest:    newEncodeRequestSchema(),
		schemaEncodeResponse:   MustGenerateSchema(&EncodeResponse{}),
		schemaDecodeRequest:    newDecodeRequestSchema(),
		schemaDecoded:          MustGenerateSchema(&contract.Decoded{}),
		schemaTxDecodeResponse: MustGenerateSchema(&TxDecodeResponse{}),
		schemaErrorResponse:    MustGenerateSchema(&ErrorResponse{}),
		schemaUndecodableError: MustGenerateSchema(&UndecodableError{}),
		schemaInteger:          integerSchema,
		schemaAddress:          addressSchema,
		schemaHexData:          hexDataSchema,
	}
	defaultTags = openapi3.Tags{
		NewTag(tagMethod, "Registered methods"),
		NewTag(tagCodec, "Encode and decode calldata"),
		NewTag(tagNetwork, "Transactions of networks"),
		NewTag(tagMonitor, "Websocket streams"),
	}
)

func MustGenerateSchema(v interface{}) *openapi3.Schema {
	ref, err := openapi3gen.NewSchemaRefForValue(v, nil)
	if err != nil {
		log.Panicf("%+v", err)
	}
	return ref.Value
}

func DefaultSchemaRef(name string) *openapi3.SchemaRef {
	if s, ok := defaultSchemas[name]; ok {
		return openapi3.NewSchemaRef(schemaRefPrefix+name, s)
	}
	return nil
}

func NewSchemas() openapi3.Schemas {
	schemas := make(openapi3.Schemas)
	for k, s := range defaultSchemas {
		schemas[k] = s.NewRef()
	}
	return schemas
}

func NewTags() openapi3.Tags {
	tags := make(openapi3.Tags, len(defaultTags))
	copy(tags, defaultTags)
	return tags
}

func NewTag(name, desc string) *openapi3.Tag {
	return &openapi3.Tag{
		Name:        name,
		Description: desc,
	}
}

func selfRef(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(schemaRefPrefix+name, nil)
}

func newTypeDescriptorSchema() *openapi3.Schema {
	components := openapi3.NewArraySchema()
	components.Items = selfRef(schemaTypeDescriptor)
	s := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("internalType", openapi3.NewStringSchema()).
		WithProperty("components", components)
	s.Required = []string{"type"}
	return s
}

func typeDescriptorsSchema() *openapi3.Schema {
	s := openapi3.NewArraySchema()
	s.Items = selfRef(schemaTypeDescriptor)
	return s
}

func newMethodDescriptorSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("type", NewStringEnumSchema("function")).
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("inputs", typeDescriptorsSchema()).
		WithProperty("outputs", typeDescriptorsSchema()).
		WithProperty("stateMutability", NewStringEnumSchema("pure", "view", "nonpayable", "payable"))
	s.Required = []string{"name", "inputs"}
	return s
}

func newMethodInfoSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("selector", selectorSchema).
		WithProperty("signature", openapi3.NewStringSchema()).
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("inputs", typeDescriptorsSchema()).
		WithProperty("outputs", typeDescriptorsSchema())
}

func newMethodPageSchema() *openapi3.Schema {
	content := openapi3.NewArraySchema()
	content.Items = selfRef(schemaMethodInfo)
	return openapi3.NewObjectSchema().
		WithProperty("content", content).
		WithProperty("total_elements", openapi3.NewIntegerSchema()).
		WithProperty("total_pages", openapi3.NewIntegerSchema()).
		WithProperty("pageable", MustGenerateSchema(&PageRequest{}))
}

func newEncodeRequestSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithPropertyRef("method", selfRef(schemaMethodDescriptor)).
		WithProperty("signature", openapi3.NewStringSchema()).
		WithProperty("args", openapi3.NewArraySchema()).
		WithProperty("params", openapi3.NewObjectSchema()).
		WithProperty("annotate", openapi3.NewBoolSchema())
}

func newDecodeRequestSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithPropertyRef("method", selfRef(schemaMethodDescriptor)).
		WithPropertyRef("data", selfRef(schemaHexData))
	s.Required = []string{"data"}
	return s
}

// DataTypeToSchema returns the schema of the JSON value accepted by the
// encoder for t.
func DataTypeToSchema(t *abi.DataType) *openapi3.Schema {
	t = t.Unwrap()
	switch t.Kind() {
	case abi.KindAddress:
		return addressSchema
	case abi.KindBool:
		return booleanSchema
	case abi.KindInt, abi.KindUint:
		return integerSchema
	case abi.KindFixedBytes:
		return openapi3.NewStringSchema().WithPattern(fmt.Sprintf("^0x[0-9a-fA-F]{%d}$", t.Size()*2))
	case abi.KindBytes:
		return hexDataSchema
	case abi.KindString:
		return stringSchema
	case abi.KindArray:
		s := openapi3.NewArraySchema().WithItems(DataTypeToSchema(t.Elem()))
		if !t.IsVariableLength() {
			s = s.WithMinItems(int64(t.Length())).WithMaxItems(int64(t.Length()))
		}
		return s
	case abi.KindTuple:
		return NewTupleSchema(t)
	default:
		return openapi3.NewObjectSchema()
	}
}

func NewTupleSchema(t *abi.DataType) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	for i, f := range t.Fields() {
		k := t.Keys()[i]
		s.WithProperty(k, DataTypeToSchema(f))
		s.Required = append(s.Required, k)
	}
	return s
}

func MethodSchemaName(m *abi.Method) string {
	return m.Name() + "_" + strings.TrimPrefix(m.SelectorHex(), "0x")[:methodSchemaSuffixLength]
}

// NewMethodSchema returns the schema of the params of m.
func NewMethodSchema(m *abi.Method) *openapi3.Schema {
	s := NewTupleSchema(m.Inputs())
	s.Title = m.Signature()
	return s
}

func NewPathParameterWithSchema(name string, s *openapi3.Schema) *openapi3.Parameter {
	return openapi3.NewPathParameter(name).WithRequired(true).WithSchema(s)
}

func PutParameter(pm openapi3.ParametersMap, p *openapi3.Parameter) *openapi3.ParameterRef {
	pm[p.Name] = &openapi3.ParameterRef{Value: p}
	return &openapi3.ParameterRef{Ref: parameterRefPrefix + p.Name, Value: p}
}

func NewParameters(ps ...*openapi3.Parameter) openapi3.Parameters {
	parameters := make(openapi3.Parameters, 0)
	for _, p := range ps {
		pr := &openapi3.ParameterRef{
			Value: p,
		}
		parameters = append(parameters, pr)
	}
	return parameters
}

func contains(l []string, s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

func NewQueryParametersByObjectSchema(s *openapi3.Schema) []*openapi3.Parameter {
	l := make([]*openapi3.Parameter, 0)
	for k, v := range s.Properties {
		p := openapi3.NewQueryParameter(k).WithSchema(v.Value)
		if contains(s.Required, k) {
			p = p.WithRequired(true)
		}
		l = append(l, p)
	}
	return l
}

func NewSuccessResponse() *openapi3.Response {
	return openapi3.NewResponse().WithDescription("Successful operation")
}

func NewSuccessResponseWithSchema(s *openapi3.Schema) *openapi3.Response {
	return NewSuccessResponse().WithJSONSchema(s)
}

func NewSuccessResponseWithSchemaRef(sr *openapi3.SchemaRef) *openapi3.Response {
	return NewSuccessResponse().WithJSONSchemaRef(sr)
}

func NewErrorResponseRef(desc string) *openapi3.Response {
	return openapi3.NewResponse().WithDescription(desc).
		WithJSONSchemaRef(DefaultSchemaRef(schemaErrorResponse))
}

func ResponsesWithResponse(m openapi3.Responses, status int, resp *openapi3.Response) openapi3.Responses {
	if m == nil {
		m = make(openapi3.Responses)
	}
	m[strconv.FormatInt(int64(status), 10)] = &openapi3.ResponseRef{
		Value: resp,
	}
	return m
}

func NewStringEnumSchema(strs ...string) *openapi3.Schema {
	values := make([]interface{}, len(strs))
	for i := 0; i < len(strs); i++ {
		values[i] = strs[i]
	}
	return openapi3.NewStringSchema().WithEnum(values...)
}

func newJSONRequestBody(sr *openapi3.SchemaRef) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithContent(
			openapi3.NewContentWithJSONSchemaRef(sr)),
	}
}

func NewOpenAPISpec() openapi3.T {
	return openapi3.T{
		OpenAPI: openapi3Version,
		Info: &openapi3.Info{
			Title:   infoTitle,
			Version: infoDefaultVersion,
			License: infoLicenseApache,
		},
		ExternalDocs: externalDocs,
		Tags:         NewTags(),
		Paths:        make(openapi3.Paths),
		Components: &openapi3.Components{
			Schemas:    NewSchemas(),
			Parameters: make(openapi3.ParametersMap),
		},
	}
}

// OpenAPISpecProvider keeps the OpenAPI document of the server, updated with
// registered methods and configured networks.
type OpenAPISpecProvider struct {
	d   openapi3.T
	npr *openapi3.ParameterRef //Network ParameterRef
	top *openapi3.Operation    //Tx Operation
	m2s map[string]string
	mtx sync.RWMutex
	l   log.Logger
}

func NewOpenAPISpecProvider(l log.Logger) *OpenAPISpecProvider {
	oas := NewOpenAPISpec()

	mu, mpi := newMethodsPathItem()
	oas.Paths[mu] = mpi
	spr := PutParameter(oas.Components.Parameters, NewPathParameterWithSchema(ParamSelector, selectorSchema))
	su, spi := newSelectorPathItem(spr)
	oas.Paths[su] = spi
	oas.Paths[GroupUrlApi+UrlEncode] = newCodecPathItem("Encode calldata",
		schemaEncodeRequest, DefaultSchemaRef(schemaEncodeResponse))
	oas.Paths[GroupUrlApi+UrlDecode] = newCodecPathItem("Decode calldata",
		schemaDecodeRequest, DefaultSchemaRef(schemaDecoded))

	npr := PutParameter(oas.Components.Parameters, NewPathParameterWithSchema(ParamNetwork, NewStringEnumSchema()))
	tpr := PutParameter(oas.Components.Parameters, NewPathParameterWithSchema(ParamTxID, hexDataSchema))
	tu, tpi := newTxPathItem(npr, tpr)
	oas.Paths[tu] = tpi

	oas.Paths[GroupUrlMonitor+UrlMonitorDecode] = &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{tagMonitor},
			Summary:     "Decode calldata stream",
			Description: "Websocket. Send {} and receive ErrorResponse as handshake, " +
				"then send {\"data\":HexData} to receive {\"decoded\":Decoded} or {\"error\":ErrorResponse}.",
			Responses: ResponsesWithResponse(nil, http.StatusSwitchingProtocols,
				openapi3.NewResponse().WithDescription("Switching protocols")),
		},
	}
	return &OpenAPISpecProvider{
		d:   oas,
		npr: npr,
		top: tpi.Get,
		m2s: make(map[string]string),
		l:   l,
	}
}

func newMethodsPathItem() (string, *openapi3.PathItem) {
	pi := &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:       []string{tagMethod},
			Summary:    "Retrieve registered methods",
			Parameters: NewParameters(NewQueryParametersByObjectSchema(MustGenerateSchema(&PageRequest{}))...),
			Responses: ResponsesWithResponse(nil, http.StatusOK,
				NewSuccessResponseWithSchemaRef(DefaultSchemaRef(schemaMethodPage))),
		},
		Post: &openapi3.Operation{
			Tags:    []string{tagMethod},
			Summary: "Register functions of contract ABI",
			RequestBody: &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithRequired(true).WithContent(
					openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema().
						WithProperty("abi", openapi3.NewArraySchema().
							WithItems(DefaultSchemaRef(schemaMethodDescriptor).Value)))),
			},
			Responses: ResponsesWithResponse(
				ResponsesWithResponse(nil, http.StatusOK,
					NewSuccessResponseWithSchemaRef(DefaultSchemaRef(schemaMethodInfos))),
				http.StatusBadRequest, NewErrorResponseRef("Invalid contract ABI")),
		},
	}
	return GroupUrlApi + UrlMethods, pi
}

func newSelectorPathItem(spr *openapi3.ParameterRef) (string, *openapi3.PathItem) {
	pi := &openapi3.PathItem{
		Parameters: openapi3.Parameters{spr},
		Get: &openapi3.Operation{
			Tags:    []string{tagMethod},
			Summary: "Retrieve methods matching selector",
			Responses: ResponsesWithResponse(
				ResponsesWithResponse(nil, http.StatusOK,
					NewSuccessResponseWithSchemaRef(DefaultSchemaRef(schemaMethodInfos))),
				http.StatusNotFound, NewErrorResponseRef("Method not found")),
		},
	}
	return fmt.Sprintf("%s%s/{%s}", GroupUrlApi, UrlMethods, spr.Value.Name), pi
}

func newCodecPathItem(summary, reqSchema string, resp *openapi3.SchemaRef) *openapi3.PathItem {
	return &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{tagCodec},
			Summary:     summary,
			RequestBody: newJSONRequestBody(DefaultSchemaRef(reqSchema)),
			Responses: ResponsesWithResponse(
				ResponsesWithResponse(nil, http.StatusOK, NewSuccessResponseWithSchemaRef(resp)),
				http.StatusBadRequest, NewErrorResponseRef("Invalid request or calldata")),
		},
	}
}

func newTxPathItem(npr, tpr *openapi3.ParameterRef) (string, *openapi3.PathItem) {
	pi := &openapi3.PathItem{
		Parameters: openapi3.Parameters{npr, tpr},
		Get: &openapi3.Operation{
			Tags:    []string{tagNetwork},
			Summary: "Decode input of transaction with given TxID",
			Responses: ResponsesWithResponse(
				ResponsesWithResponse(nil, http.StatusOK,
					NewSuccessResponseWithSchemaRef(DefaultSchemaRef(schemaTxDecodeResponse))),
				http.StatusNotFound, NewErrorResponseRef("Network or transaction not found")),
		},
	}
	return fmt.Sprintf("%s/{%s}%s/{%s}", GroupUrlApi, npr.Value.Name, UrlTx, tpr.Value.Name), pi
}

// PutNetwork adds network to the enum of the network parameter, and tags
// the transaction operation with networkType.
func (o *OpenAPISpecProvider) PutNetwork(network, networkType string) {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	nps := o.npr.Value.Schema.Value
	for _, v := range nps.Enum {
		if v == network {
			return
		}
	}
	nps.Enum = append(nps.Enum, network)
	if t := o.d.Tags.Get(networkType); t == nil {
		o.d.Tags = append(o.d.Tags, NewTag(networkType, network))
	} else {
		t.Description = t.Description + "," + network
	}
	if !contains(o.top.Tags, networkType) {
		o.top.Tags = append(o.top.Tags, networkType)
	}
	o.l.Debugf("PutNetwork network:%s networkType:%s", network, networkType)
}

// Merge adds the params schema of each method.
func (o *OpenAPISpecProvider) Merge(ms ...*abi.Method) {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	for _, m := range ms {
		if _, ok := o.m2s[m.Signature()]; ok {
			continue
		}
		name := MethodSchemaName(m)
		if _, ok := o.d.Components.Schemas[name]; ok {
			o.l.Warnf("overwrite OpenAPI schema:%s signature:%s", name, m.Signature())
		}
		o.d.Components.Schemas[name] = NewMethodSchema(m).NewRef()
		o.m2s[m.Signature()] = name
	}
}

func (o *OpenAPISpecProvider) SchemaName(signature string) (string, bool) {
	o.mtx.RLock()
	defer o.mtx.RUnlock()

	name, ok := o.m2s[signature]
	return name, ok
}

func (o *OpenAPISpecProvider) MarshalJSON() ([]byte, error) {
	o.mtx.RLock()
	defer o.mtx.RUnlock()

	return json.Marshal(&o.d)
}

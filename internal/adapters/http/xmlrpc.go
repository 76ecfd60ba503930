package http

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"

	"golang.org/x/net/html/charset"

	"github.com/viralforge/economy-bridge/internal/domain"
)

const (
	notificationMethod = "OMBaseNotification"

	faultRejected  = 1
	faultMalformed = 2
)

type methodCall struct {
	XMLName    xml.Name    `xml:"methodCall"`
	MethodName string      `xml:"methodName"`
	Params     []callParam `xml:"params>param"`
}

type callParam struct {
	Value rpcValue `xml:"value"`
}

// rpcValue covers the scalar and struct shapes the gateway sends. A value without a
// type element is a string.
type rpcValue struct {
	Text    string     `xml:",chardata"`
	String  *string    `xml:"string"`
	Int     *string    `xml:"int"`
	I4      *string    `xml:"i4"`
	Boolean *string    `xml:"boolean"`
	Double  *string    `xml:"double"`
	Struct  *rpcStruct `xml:"struct"`
}

type rpcStruct struct {
	Members []rpcMember `xml:"member"`
}

type rpcMember struct {
	Name  string   `xml:"name"`
	Value rpcValue `xml:"value"`
}

func (v rpcValue) scalar() (string, error) {
	switch {
	case v.Struct != nil:
		return "", errors.New("nested struct")
	case v.String != nil:
		return *v.String, nil
	case v.Int != nil:
		return *v.Int, nil
	case v.I4 != nil:
		return *v.I4, nil
	case v.Boolean != nil:
		return *v.Boolean, nil
	case v.Double != nil:
		return *v.Double, nil
	default:
		return v.Text, nil
	}
}

func (v rpcValue) stringMap() (map[string]string, error) {
	if v.Struct == nil {
		return nil, errors.New("parameter is not a struct")
	}
	out := make(map[string]string, len(v.Struct.Members))
	for _, m := range v.Struct.Members {
		s, err := m.Value.scalar()
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", m.Name, err)
		}
		out[m.Name] = s
	}
	return out, nil
}

// decodeNotification reads an OMBaseNotification call and returns its requestData and
// communicationData structs. Calls may declare any encoding the gateway's XML-RPC
// library emits, ISO-8859-1 included.
func decodeNotification(r io.Reader) (map[string]string, map[string]string, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	var call methodCall
	if err := dec.Decode(&call); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if call.MethodName != notificationMethod {
		return nil, nil, fmt.Errorf("%w: unknown xml-rpc method %q", domain.ErrInvalidInput, call.MethodName)
	}
	if len(call.Params) < 2 {
		return nil, nil, fmt.Errorf("%w: expected requestData and communicationData", domain.ErrInvalidInput)
	}
	requestData, err := call.Params[0].Value.stringMap()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: requestData: %v", domain.ErrInvalidInput, err)
	}
	communicationData, err := call.Params[1].Value.stringMap()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: communicationData: %v", domain.ErrInvalidInput, err)
	}
	return requestData, communicationData, nil
}

type methodResponse struct {
	XMLName xml.Name     `xml:"methodResponse"`
	Params  *replyParams `xml:"params,omitempty"`
	Fault   *replyParam  `xml:"fault,omitempty"`
}

type replyParams struct {
	Param replyParam `xml:"param"`
}

type replyParam struct {
	Value replyValue `xml:"value"`
}

type replyValue struct {
	String  *string      `xml:"string,omitempty"`
	Int     *int         `xml:"int,omitempty"`
	Boolean *int         `xml:"boolean,omitempty"`
	Struct  *replyStruct `xml:"struct,omitempty"`
}

type replyStruct struct {
	Members []replyMember `xml:"member"`
}

type replyMember struct {
	Name  string     `xml:"name"`
	Value replyValue `xml:"value"`
}

func encodeStruct(fields map[string]any) replyValue {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	members := make([]replyMember, 0, len(keys))
	for _, k := range keys {
		members = append(members, replyMember{Name: k, Value: encodeScalar(fields[k])})
	}
	return replyValue{Struct: &replyStruct{Members: members}}
}

func encodeScalar(v any) replyValue {
	switch t := v.(type) {
	case bool:
		b := 0
		if t {
			b = 1
		}
		return replyValue{Boolean: &b}
	case int:
		return replyValue{Int: &t}
	case string:
		return replyValue{String: &t}
	default:
		s := fmt.Sprint(t)
		return replyValue{String: &s}
	}
}

func encodeReply(w io.Writer, reply domain.Reply) error {
	return writeMethodResponse(w, methodResponse{
		Params: &replyParams{Param: replyParam{Value: encodeStruct(reply.Map())}},
	})
}

func encodeFault(w io.Writer, code int, message string) error {
	return writeMethodResponse(w, methodResponse{
		Fault: &replyParam{Value: encodeStruct(map[string]any{
			"faultCode":   code,
			"faultString": message,
		})},
	})
}

func writeMethodResponse(w io.Writer, resp methodResponse) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(resp)
}

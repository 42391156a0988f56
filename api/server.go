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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/icon-project/abi-codec/abi"
	"github.com/icon-project/abi-codec/contract"
	"github.com/icon-project/abi-codec/database"
)

const (
	ParamNetwork       = "network"
	ParamTxID          = "txID"
	ParamSelector      = "selector"
	GroupUrlApi        = "/api"
	GroupUrlMonitor    = "/monitor"
	UrlMethods         = "/methods"
	UrlEncode          = "/encode"
	UrlDecode          = "/decode"
	UrlTx              = "/tx"
	UrlMonitorDecode   = "/decode"
	UrlApiDocs         = "/api-docs"
	WsHandshakeTimeout = time.Second * 3
	DefaultPageSize    = 100
)

func Logger(l log.Logger) log.Logger {
	return l.WithFields(log.Fields{log.FieldKeyModule: "api"})
}

type Server struct {
	e    *echo.Echo
	addr string
	r    *contract.Registry
	sMap map[string]contract.Source
	oas  *OpenAPISpecProvider
	once sync.Once
	mtx  sync.RWMutex
	u    websocket.Upgrader
	lv   log.Level
	l    log.Logger
}

func NewServer(addr string, r *contract.Registry, transportLogLevel log.Level, l log.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HttpErrorHandler
	l = Logger(l)
	return &Server{
		e:    e,
		addr: addr,
		r:    r,
		sMap: make(map[string]contract.Source),
		oas:  NewOpenAPISpecProvider(l),
		lv:   contract.EnsureTransportLogLevel(transportLogLevel),
		l:    l,
	}
}

func (s *Server) AddSource(network string, src contract.Source) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.sMap[network] = src
	s.oas.PutNetwork(network, src.NetworkType())
}

func (s *Server) GetSource(network string) contract.Source {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.sMap[network]
}

func (s *Server) init() {
	// CORS middleware
	s.e.Use(
		middleware.CORSWithConfig(middleware.CORSConfig{
			MaxAge: 3600,
		}),
		middleware.Recover())
	s.RegisterAPIHandler(s.e.Group(GroupUrlApi))
	s.RegisterMonitorHandler(s.e.Group(GroupUrlMonitor))
	s.e.GET(UrlApiDocs, func(c echo.Context) error {
		b, err := s.oas.MarshalJSON()
		if err != nil {
			return err
		}
		return c.JSONBlob(http.StatusOK, b)
	})
	if err := s.mergeRegisteredMethods(); err != nil {
		s.l.Warnf("fail to merge registered methods to OpenAPI err:%+v", err)
	}
}

func (s *Server) mergeRegisteredMethods() error {
	p, err := s.r.Page(database.Pageable{})
	if err != nil {
		return err
	}
	for i := range p.Content {
		m, err := s.r.MethodBySignature(p.Content[i].Signature)
		if err != nil {
			return err
		}
		s.oas.Merge(m)
	}
	return nil
}

// Handler returns the router of the server, the handlers are registered on
// the first call.
func (s *Server) Handler() http.Handler {
	s.once.Do(s.init)
	return s.e
}

func (s *Server) Start() error {
	s.l.Infoln("starting the server")
	s.once.Do(s.init)
	return s.e.Start(s.addr)
}

type MethodInfo struct {
	Selector  string               `json:"selector"`
	Signature string               `json:"signature"`
	Name      string               `json:"name"`
	Inputs    []abi.TypeDescriptor `json:"inputs"`
	Outputs   []abi.TypeDescriptor `json:"outputs,omitempty"`
}

type MethodInfos []MethodInfo

func NewMethodInfo(m *abi.Method) MethodInfo {
	d := m.Descriptor()
	return MethodInfo{
		Selector:  m.SelectorHex(),
		Signature: m.Signature(),
		Name:      m.Name(),
		Inputs:    d.Inputs,
		Outputs:   d.Outputs,
	}
}

func NewMethodInfos(ms []*abi.Method) MethodInfos {
	l := make(MethodInfos, len(ms))
	for i, m := range ms {
		l[i] = NewMethodInfo(m)
	}
	return l
}

type PageRequest struct {
	Page uint   `json:"page" query:"page"`
	Size uint   `json:"size" query:"size" validate:"lte=1000"`
	Sort string `json:"sort,omitempty" query:"sort" validate:"omitempty,sort"`
}

type MethodPage struct {
	Content       MethodInfos       `json:"content"`
	TotalElements int               `json:"total_elements"`
	TotalPages    int               `json:"total_pages"`
	Pageable      database.Pageable `json:"pageable"`
}

type RegisterRequest struct {
	ABI json.RawMessage `json:"abi" validate:"required"`
}

type SelectorRequest struct {
	Selector string `param:"selector" validate:"required,selector"`
}

type EncodeRequest struct {
	Method    *abi.MethodDescriptor  `json:"method,omitempty" validate:"required_without=Signature"`
	Signature string                 `json:"signature,omitempty" validate:"required_without=Method"`
	Args      []interface{}          `json:"args,omitempty" validate:"excluded_with=Params"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Annotate  bool                   `json:"annotate,omitempty"`
}

type EncodeResponse struct {
	Signature string `json:"signature"`
	Selector  string `json:"selector"`
	Data      string `json:"data"`
	Annotated string `json:"annotated,omitempty"`
}

type DecodeRequest struct {
	Method *abi.MethodDescriptor `json:"method,omitempty"`
	Data   string                `json:"data" validate:"required,hexdata"`
}

type TxDecodeResponse struct {
	Tx      *contract.TxInput `json:"tx"`
	Decoded *contract.Decoded `json:"decoded,omitempty"`
	Error   *ErrorResponse    `json:"error,omitempty"`
}

func (s *Server) bindAndValidate(c echo.Context, req interface{}) error {
	if err := BindQueryParamsAndUnmarshalBody(c, req); err != nil {
		s.l.Debugf("fail to BindQueryParamsAndUnmarshalBody err:%+v", err)
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if err := c.Validate(req); err != nil {
		s.l.Debugf("fail to Validate err:%+v", err)
		return err
	}
	return nil
}

func (s *Server) RegisterAPIHandler(g *echo.Group) {
	g.Use(middleware.BodyDump(func(c echo.Context, reqBody []byte, resBody []byte) {
		s.l.Debugf("url=%s", c.Request().RequestURI)
		s.l.Logf(s.lv, "request=%s", reqBody)
		s.l.Logf(s.lv, "response=%s", resBody)
	}))
	g.GET(UrlMethods, func(c echo.Context) error {
		req := &PageRequest{}
		if err := s.bindAndValidate(c, req); err != nil {
			return err
		}
		if req.Size == 0 {
			req.Size = DefaultPageSize
		}
		p, err := s.r.Page(database.Pageable{Page: req.Page, Size: req.Size, Sort: req.Sort})
		if err != nil {
			s.l.Errorf("fail to Page err:%+v", err)
			return err
		}
		ret := &MethodPage{
			Content:       make(MethodInfos, 0, len(p.Content)),
			TotalElements: p.TotalElements,
			TotalPages:    p.TotalPages,
			Pageable:      p.Pageable,
		}
		for i := range p.Content {
			m, err := s.r.MethodBySignature(p.Content[i].Signature)
			if err != nil {
				return err
			}
			ret.Content = append(ret.Content, NewMethodInfo(m))
		}
		return c.JSON(http.StatusOK, ret)
	})
	g.POST(UrlMethods, func(c echo.Context) error {
		req := &RegisterRequest{}
		if err := s.bindAndValidate(c, req); err != nil {
			return err
		}
		spec, err := contract.NewSpec(req.ABI)
		if err != nil {
			s.l.Debugf("fail to NewSpec err:%+v", err)
			return err
		}
		if _, err = s.r.RegisterSpec(spec); err != nil {
			s.l.Errorf("fail to RegisterSpec err:%+v", err)
			return err
		}
		s.oas.Merge(spec.Methods()...)
		return c.JSON(http.StatusOK, NewMethodInfos(spec.Methods()))
	})
	g.GET(UrlMethods+"/:"+ParamSelector, func(c echo.Context) error {
		req := &SelectorRequest{}
		if err := (&echo.DefaultBinder{}).BindPathParams(c, req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err)
		}
		if err := c.Validate(req); err != nil {
			return err
		}
		ms, err := s.r.MethodsBySelector(req.Selector)
		if err != nil {
			s.l.Errorf("fail to MethodsBySelector err:%+v", err)
			return err
		}
		if len(ms) == 0 {
			return contract.ErrorCodeNotFoundMethod.Errorf("not found method selector:%s", req.Selector)
		}
		return c.JSON(http.StatusOK, NewMethodInfos(ms))
	})
	g.POST(UrlEncode, func(c echo.Context) error {
		req := &EncodeRequest{}
		if err := s.bindAndValidate(c, req); err != nil {
			return err
		}
		ret, err := s.encode(req)
		if err != nil {
			s.l.Debugf("fail to encode err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, ret)
	})
	g.POST(UrlDecode, func(c echo.Context) error {
		req := &DecodeRequest{}
		if err := s.bindAndValidate(c, req); err != nil {
			return err
		}
		ret, err := s.decode(req.Method, req.Data)
		if err != nil {
			s.l.Debugf("fail to decode err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, ret)
	})
	g.GET("/:"+ParamNetwork+UrlTx+"/:"+ParamTxID, func(c echo.Context) error {
		p := c.Param(ParamNetwork)
		src := s.GetSource(p)
		if src == nil {
			return contract.ErrorCodeNotFoundNetwork.Errorf("not found network:%s", p)
		}
		ti, err := src.TxInput(c.Request().Context(), c.Param(ParamTxID))
		if err != nil {
			s.l.Debugf("fail to TxInput err:%+v", err)
			return err
		}
		ret := &TxDecodeResponse{Tx: ti}
		if ret.Decoded, err = s.r.Decode(ti.Data); err != nil {
			s.l.Debugf("fail to Decode tx:%s err:%+v", ti.TxID, err)
			ret.Error = NewErrorResponse(err)
		}
		return c.JSON(http.StatusOK, ret)
	})
}

func (s *Server) method(d *abi.MethodDescriptor, signature string) (*abi.Method, error) {
	if d != nil {
		return abi.NewMethod(*d)
	}
	return s.r.MethodBySignature(signature)
}

func (s *Server) encode(req *EncodeRequest) (*EncodeResponse, error) {
	m, err := s.method(req.Method, req.Signature)
	if err != nil {
		return nil, err
	}
	var cd *abi.Calldata
	if req.Params != nil {
		cd, err = m.EncodeParamsToCalldata(req.Params)
	} else {
		cd, err = m.EncodeToCalldata(req.Args...)
	}
	if err != nil {
		return nil, err
	}
	ret := &EncodeResponse{
		Signature: m.Signature(),
		Selector:  m.SelectorHex(),
	}
	if ret.Data, err = cd.HexValue(); err != nil {
		return nil, err
	}
	if req.Annotate {
		if ret.Annotated, err = cd.Annotated(); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (s *Server) decode(d *abi.MethodDescriptor, data string) (*contract.Decoded, error) {
	if d == nil {
		return s.r.Decode(data)
	}
	m, err := abi.NewMethod(*d)
	if err != nil {
		return nil, err
	}
	values, err := m.Decode(data)
	if err != nil {
		return nil, err
	}
	return contract.NewDecoded(m, values)
}

type DecodeStreamRequest struct {
	Method *abi.MethodDescriptor `json:"method,omitempty"`
}

type DecodeStreamMessage struct {
	Data string `json:"data" validate:"required,hexdata"`
}

type DecodeStreamResult struct {
	Decoded *contract.Decoded `json:"decoded,omitempty"`
	Error   *ErrorResponse    `json:"error,omitempty"`
}

func (s *Server) wsID(conn *websocket.Conn) string {
	return conn.RemoteAddr().String()
}

func (s *Server) wsConnect(c echo.Context) (*websocket.Conn, error) {
	conn, err := s.u.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.l.Debugf("fail to Upgrade err:%+v", err)
		return nil, err
	}
	s.l.Debugf("[%s]wsConnect", s.wsID(conn))
	return conn, nil
}

func (s *Server) wsHandshake(conn *websocket.Conn, req interface{}, onSuccess func() error) error {
	var err error
	id := s.wsID(conn)
	ctx, cancel := context.WithTimeout(context.Background(), WsHandshakeTimeout)
	defer func() {
		cancel()
		er := &ErrorResponse{
			Code: errors.Success,
		}
		if err != nil {
			er = NewErrorResponse(err)
			if er.Code == errors.Success {
				er.Code = errors.UnknownError
			}
		}
		if werr := s.wsWrite(conn, er); werr != nil {
			s.l.Debugf("[%s]fail to wsWrite err:%+v", id, werr)
		}
	}()
	if err = s.wsRead(ctx, conn, req); err != nil {
		s.l.Debugf("[%s]fail to wsRead err:%+v", id, err)
		return err
	}
	err = onSuccess()
	return err
}

func (s *Server) wsClose(conn *websocket.Conn) {
	s.l.Debugf("[%s]wsClose", s.wsID(conn))
	conn.Close()
}

func (s *Server) wsRead(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	id := s.wsID(conn)
	ch := make(chan interface{}, 1)
	go func() {
		_, b, err := conn.ReadMessage()
		if err != nil {
			ch <- err
		} else {
			ch <- b
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case inf := <-ch:
		switch t := inf.(type) {
		case error:
			return t
		case []byte:
			if err := json.Unmarshal(t, v); err != nil {
				return err
			}
			s.l.Logf(s.lv, "[%s]wsRead=%s", id, t)
			return nil
		default:
			s.l.Panicln("unreachable code")
			return nil
		}
	}
}

func (s *Server) wsWrite(conn *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.l.Logf(s.lv, "[%s]wsWrite=%s", s.wsID(conn), b)
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Server) wsReadLoop(ctx context.Context, conn *websocket.Conn, cb func(b []byte) error) error {
	id := s.wsID(conn)
	ech := make(chan error, 1)
	go func() {
		defer func() {
			s.l.Debugf("[%s]wsReadLoop finish", id)
		}()
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				ech <- err
				break
			}
			s.l.Logf(s.lv, "[%s]wsReadLoop=%s", id, b)
			if err = cb(b); err != nil {
				ech <- err
				break
			}
		}
	}()

	select {
	case <-ctx.Done():
		s.l.Debugf("[%s]wsReadLoop context Done", id)
		return ctx.Err()
	case err := <-ech:
		s.l.Debugf("[%s]wsReadLoop err:%+v", id, err)
		return err
	}
}

func (s *Server) RegisterMonitorHandler(g *echo.Group) {
	g.GET(UrlMonitorDecode, func(c echo.Context) error {
		conn, err := s.wsConnect(c)
		if err != nil {
			return err
		}
		defer s.wsClose(conn)
		id := s.wsID(conn)
		req := &DecodeStreamRequest{}
		var m *abi.Method
		onSuccessHandshake := func() error {
			if req.Method != nil {
				if m, err = abi.NewMethod(*req.Method); err != nil {
					s.l.Debugf("[%s]fail to NewMethod err:%+v", id, err)
					return err
				}
			}
			return nil
		}
		if err = s.wsHandshake(conn, req, onSuccessHandshake); err != nil {
			s.l.Debugf("[%s]fail to wsHandshake err:%+v", id, err)
			return nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		err = s.wsReadLoop(ctx, conn, func(b []byte) error {
			return s.wsWrite(conn, s.decodeMessage(c, m, b))
		})
		if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			s.l.Debugf("[%s]fail to wsReadLoop err:%+v", id, err)
		}
		return nil
	})
}

func (s *Server) decodeMessage(c echo.Context, m *abi.Method, b []byte) *DecodeStreamResult {
	msg := &DecodeStreamMessage{}
	if err := json.Unmarshal(b, msg); err != nil {
		return &DecodeStreamResult{Error: NewErrorResponse(
			errors.IllegalArgumentError.Wrapf(err, "invalid message err:%s", err.Error()))}
	}
	if err := c.Validate(msg); err != nil {
		return &DecodeStreamResult{Error: NewErrorResponse(
			errors.IllegalArgumentError.Errorf("invalid message err:%s", err.Error()))}
	}
	var (
		d   *contract.Decoded
		err error
	)
	if m == nil {
		d, err = s.r.Decode(msg.Data)
	} else {
		var values []interface{}
		if values, err = m.Decode(msg.Data); err == nil {
			d, err = contract.NewDecoded(m, values)
		}
	}
	if err != nil {
		return &DecodeStreamResult{Error: NewErrorResponse(err)}
	}
	return &DecodeStreamResult{Decoded: d}
}

func (s *Server) Stop() error {
	s.l.Infoln("shutting down the server")

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

func BindQueryParamsAndUnmarshalBody(c echo.Context, v interface{}) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, v); err != nil {
		return err
	}
	return UnmarshalRequestBody(c, v)
}

func UnmarshalRequestBody(c echo.Context, v interface{}) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	return UnmarshalBody(c.Request().Body, v)
}

// UnmarshalBody keeps numbers as json.Number, integers beyond 2^53 are
// passed to the encoder without loss.
func UnmarshalBody(b io.ReadCloser, v interface{}) error {
	defer b.Close()
	d := json.NewDecoder(b)
	d.UseNumber()
	if err := d.Decode(v); err != nil {
		if err == io.EOF {
			return nil
		}
		return errors.Wrapf(err, "fail to Decode err:%s", err.Error())
	}
	return nil
}

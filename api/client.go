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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gorilla/websocket"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/abi-codec/abi"
	"github.com/icon-project/abi-codec/contract"
)

type Client struct {
	*http.Client
	baseUrl        string
	baseApiUrl     string
	baseMonitorUrl string
	lv             log.Level
	l              log.Logger
}

func NewClient(url string, transportLogLevel log.Level, l log.Logger) *Client {
	l = Logger(l)
	url = strings.TrimSuffix(url, "/")
	return &Client{
		Client:         contract.NewHttpClient(transportLogLevel, l),
		baseUrl:        url,
		baseApiUrl:     url + GroupUrlApi,
		baseMonitorUrl: url + GroupUrlMonitor,
		lv:             transportLogLevel,
		l:              l,
	}
}

func (c *Client) apiUrl(format string, args ...interface{}) string {
	return c.baseApiUrl + fmt.Sprintf(format, args...)
}

func (c *Client) do(method, url string, reqPtr, respPtr interface{}) (resp *http.Response, err error) {
	var reqBody io.Reader
	if reqPtr != nil {
		var b []byte
		if b, err = json.Marshal(reqPtr); err != nil {
			c.l.Debugf("fail to encode Request err:%+v", err)
			return nil, err
		}
		reqBody = bytes.NewReader(b)
	}
	if !strings.HasPrefix(url, c.baseUrl) {
		url = c.baseApiUrl + url
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		c.l.Debugf("fail to NewRequest err:%+v", err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.l.Debugf("url=%s", req.URL)
	if resp, err = c.Client.Do(req); err != nil {
		return
	}
	if resp.StatusCode/100 != 2 {
		er := &ErrorResponse{}
		if err = UnmarshalBody(resp.Body, er); err != nil {
			c.l.Debugf("fail to decode ErrorResponse err:%+v", err)
			err = errors.Errorf("server response not success, StatusCode:%d",
				resp.StatusCode)
			return
		}
		err = er
		return
	}
	if respPtr != nil {
		if err = UnmarshalBody(resp.Body, respPtr); err != nil {
			c.l.Debugf("fail to decode resp err:%+v", err)
			return
		}
	}
	return
}

func (c *Client) Methods(req *PageRequest) (*MethodPage, error) {
	q := url.Values{}
	if req != nil {
		q.Set("page", fmt.Sprint(req.Page))
		q.Set("size", fmt.Sprint(req.Size))
		if len(req.Sort) > 0 {
			q.Set("sort", req.Sort)
		}
	}
	r := &MethodPage{}
	if _, err := c.do(http.MethodGet, c.apiUrl("%s?%s", UrlMethods, q.Encode()), nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Register registers functions of the contract ABI document b.
func (c *Client) Register(b []byte) (MethodInfos, error) {
	r := MethodInfos{}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlMethods), &RegisterRequest{ABI: b}, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) MethodsBySelector(selector string) (MethodInfos, error) {
	r := MethodInfos{}
	if _, err := c.do(http.MethodGet, c.apiUrl("%s/%s", UrlMethods, selector), nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Encode(req *EncodeRequest) (*EncodeResponse, error) {
	r := &EncodeResponse{}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlEncode), req, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Decode(req *DecodeRequest) (*contract.Decoded, error) {
	r := &contract.Decoded{}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlDecode), req, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) TxDecode(network, txID string) (*TxDecodeResponse, error) {
	r := &TxDecodeResponse{}
	if _, err := c.do(http.MethodGet, c.apiUrl("/%s%s/%s", network, UrlTx, txID), nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) ApiDocs() (*openapi3.T, error) {
	r := &openapi3.T{}
	if _, err := c.do(http.MethodGet, c.baseUrl+UrlApiDocs, nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) monitorUrl(format string, args ...interface{}) string {
	return c.baseMonitorUrl + fmt.Sprintf(format, args...)
}

func (c *Client) wsID(conn *websocket.Conn) string {
	return conn.LocalAddr().String()
}

func (c *Client) wsConnect(ctx context.Context, url string) (*websocket.Conn, error) {
	url = strings.Replace(url, "http", "ws", 1)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if err == websocket.ErrBadHandshake {
			er := &ErrorResponse{}
			if err = UnmarshalBody(resp.Body, er); err != nil {
				err = errors.Errorf("server response not success, StatusCode:%d",
					resp.StatusCode)
			} else {
				err = er
			}
		}
		c.l.Debugf("fail to Dial url:%s err:%+v", url, err)
		return nil, err
	}
	id := c.wsID(conn)
	pingHandler := conn.PingHandler()
	conn.SetPingHandler(func(appData string) error {
		c.l.Logf(c.lv, "[%s]wsPing=%s", id, appData)
		return pingHandler(appData)
	})
	conn.SetPongHandler(func(appData string) error {
		c.l.Logf(c.lv, "[%s]unexpected wsPong %s", id, appData)
		return nil
	})
	c.l.Debugf("[%s]wsConnect", id)
	return conn, nil
}

func (c *Client) wsHandshake(ctx context.Context, conn *websocket.Conn, req interface{}) error {
	var err error
	id := c.wsID(conn)
	if err = c.wsWrite(conn, req); err != nil {
		c.l.Debugf("[%s]fail to wsWrite err:%+v", id, err)
		return err
	}
	tctx, cancel := context.WithTimeout(ctx, WsHandshakeTimeout)
	defer cancel()
	er := &ErrorResponse{}
	if err = c.wsRead(tctx, conn, er); err != nil {
		c.l.Debugf("[%s]fail to wsRead err:%+v", id, err)
		return err
	}
	if !errors.Success.Equals(er) {
		err = er
		return err
	}
	return nil
}

func (c *Client) wsClose(conn *websocket.Conn) {
	c.l.Debugf("[%s]wsClose", c.wsID(conn))
	conn.Close()
}

func (c *Client) wsRead(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	id := c.wsID(conn)
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
			c.l.Logf(c.lv, "[%s]wsRead=%s", id, t)
			return nil
		default:
			c.l.Panicln("unreachable code")
			return nil
		}
	}
}

func (c *Client) wsWrite(conn *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.l.Logf(c.lv, "[%s]wsWrite=%s", c.wsID(conn), b)
	return conn.WriteMessage(websocket.TextMessage, b)
}

// DecodeStream sends each of l over a websocket, cb is called with the
// result in the same order.
func (c *Client) DecodeStream(ctx context.Context, method *abi.MethodDescriptor, l []string,
	cb func(data string, r *DecodeStreamResult) error) error {
	conn, err := c.wsConnect(ctx, c.monitorUrl(UrlMonitorDecode))
	if err != nil {
		return err
	}
	defer c.wsClose(conn)
	if err = c.wsHandshake(ctx, conn, &DecodeStreamRequest{Method: method}); err != nil {
		return err
	}
	for _, data := range l {
		if err = c.wsWrite(conn, &DecodeStreamMessage{Data: data}); err != nil {
			return err
		}
		r := &DecodeStreamResult{}
		if err = c.wsRead(ctx, conn, r); err != nil {
			return err
		}
		if err = cb(data, r); err != nil {
			return err
		}
	}
	return nil
}

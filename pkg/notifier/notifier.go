/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package notifier forwards evidence notifications from the message queue to webhooks.
package notifier

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/amqp"
	"github.com/scoir/attestor/pkg/evidence"
	"github.com/scoir/attestor/pkg/framework"
)

var logger = log.New("attestor/notifier")

type Server struct {
	listener amqp.Listener
	hooks    []*framework.Webhook
	client   *http.Client
	now      func() time.Time
	errors   chan error
}

type provider interface {
	GetAMQPListener(queue string) (amqp.Listener, error)
	Webhooks() []*framework.Webhook
}

func New(prov provider) (*Server, error) {
	listener, err := prov.GetAMQPListener(amqp.QueueName)
	if err != nil {
		return nil, errors.Wrap(err, "unable to listen for evidence notifications")
	}

	srv := &Server{
		listener: listener,
		hooks:    prov.Webhooks(),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}

	return srv, nil
}

func (r *Server) Start() error {
	return r.listenAndServe()
}

func (r *Server) Stop() error {
	return r.listener.Close()
}

func (r *Server) listenAndServe() error {
	msgs, err := r.listener.Listen()
	if err != nil {
		return errors.Wrap(err, "unable to consume")
	}

	for d := range msgs {
		note := &evidence.Notification{}
		err := json.Unmarshal(d.Body, note)
		if err != nil {
			r.Error(errors.Wrap(err, "bad notification message"))
			continue
		}

		event := &EventMessage{
			Event:     note.Type,
			Timestamp: r.now().Unix(),
			EventData: note,
		}
		data, _ := json.Marshal(event)
		for _, hook := range r.subscribers(note.Type) {
			r.post(hook.URL, data)
		}
	}

	return errors.New("notification messages closed")
}

func (r *Server) subscribers(topic string) []*framework.Webhook {
	var out []*framework.Webhook
	for _, hook := range r.hooks {
		if hook.Topic == topic || hook.Topic == AnyTopic || hook.Topic == "" {
			out = append(out, hook)
		}
	}

	return out
}

func (r *Server) post(url string, data []byte) {
	resp, err := r.client.Post(url, "application/json", bytes.NewBuffer(data))
	if err != nil {
		r.Error(errors.Wrapf(err, "unable to post event to hook %s", url))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		b, _ := ioutil.ReadAll(resp.Body)
		r.Error(errors.Errorf("error response from hook. code: (%d): %s", resp.StatusCode, string(b)))
	}
}

func (r *Server) Error(err error) {
	if r.errors == nil {
		logger.Errorf("%v", err)
		return
	}

	r.errors <- err
}

func (r *Server) Errors() (chan error, error) {
	if r.errors != nil {
		return nil, errors.New("error listener already registered")
	}

	r.errors = make(chan error, 1)
	return r.errors, nil
}

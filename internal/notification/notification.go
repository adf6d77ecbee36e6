/*
Copyright 2024 PipLine Treasury Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/pipline/treasury/config"
	"github.com/pipline/treasury/internal/request"
	"github.com/pipline/treasury/model"
	"github.com/sirupsen/logrus"
)

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

// Field is one labelled value in a Slack message.
type Field struct {
	Label string
	Value string
}

func buildSlackMessage(title string, fields []Field) slackMessage {
	msg := slackMessage{Blocks: []slackBlock{{
		Type: "header",
		Text: &slackText{Type: "plain_text", Text: title, Emoji: true},
	}}}
	for _, f := range fields {
		msg.Blocks = append(msg.Blocks, slackBlock{
			Type:   "section",
			Fields: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("*%s:*\n%s", f.Label, f.Value)}},
		})
	}
	return msg
}

// SlackNotification posts a message to the configured Slack webhook.
// It is a no-op when no webhook is configured.
func SlackNotification(ctx context.Context, title string, fields ...Field) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	url := conf.Notification.Slack.WebhookUrl
	if url == "" {
		return nil
	}
	fields = append(fields, Field{Label: "Time", Value: time.Now().Format(time.RFC822)})
	_, err = request.PostJSON(ctx, url, buildSlackMessage(title, fields), nil)
	return err
}

// NotifyError logs systemError and reports it to Slack in the background.
func NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)
		if err := SlackNotification(context.Background(), "Error From Treasury", Field{Label: "Error", Value: systemError.Error()}); err != nil {
			logrus.Errorf("slack notification failed: %v", err)
		}
	}(systemError)
}

// RolloverRiskFields describes a daily balance whose rollover crossed the alert level.
func RolloverRiskFields(balance model.DailyBalance, level model.RiskLevel) []Field {
	return []Field{
		{Label: "PSP", Value: balance.PSP},
		{Label: "Date", Value: balance.Date},
		{Label: "Risk", Value: string(level)},
		{Label: "Net", Value: balance.NetAmount.StringFixed(model.MoneyPlaces)},
		{Label: "Allocation", Value: balance.AllocationAmount.StringFixed(model.MoneyPlaces)},
		{Label: "Rollover", Value: balance.RolloverAmount.StringFixed(model.MoneyPlaces)},
	}
}

// NotifyRolloverRisk reports a risky rollover in the background.
func NotifyRolloverRisk(balance model.DailyBalance, level model.RiskLevel) {
	go func() {
		logrus.WithFields(logrus.Fields{
			"psp":  balance.PSP,
			"date": balance.Date,
			"risk": level,
		}).Warn("rollover above alert level")
		title := fmt.Sprintf("%s rollover risk on %s", level, balance.PSP)
		if err := SlackNotification(context.Background(), title, RolloverRiskFields(balance, level)...); err != nil {
			logrus.Errorf("slack notification failed: %v", err)
		}
	}()
}

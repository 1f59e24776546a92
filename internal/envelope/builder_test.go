package envelope

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/message"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

func testBuilder(opts ...Option) *Builder {
	base := []Option{
		WithRand(bytes.NewReader(bytes.Repeat([]byte{0xab}, 4096))),
		WithClock(func() time.Time { return time.UnixMilli(5000) }),
	}
	return NewBuilder(append(base, opts...)...)
}

func mustFields(t *testing.T, b []byte) []field {
	t.Helper()
	fs, err := parseFields(b)
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	return fs
}

func fieldNumbers(fs []field) map[protowire.Number]int {
	nums := make(map[protowire.Number]int)
	for _, f := range fs {
		nums[f.num]++
	}
	return nums
}

func only(t *testing.T, b []byte, num protowire.Number) []byte {
	t.Helper()
	fs := mustFields(t, b)
	if len(fs) != 1 || fs[0].num != num {
		t.Fatalf("got fields %v, want only %d", fieldNumbers(fs), num)
	}
	return fs[0].b
}

func TestBuildPlainText(t *testing.T) {
	content, err := testBuilder().Build(&message.DataMessage{Body: proto.String("hi"), Timestamp: 1000})
	if err != nil {
		t.Fatal(err)
	}

	data := only(t, content, contentDataMessage)
	fs := mustFields(t, data)
	if len(fs) != 2 {
		t.Fatalf("got %d data fields (%v), want body and timestamp only", len(fs), fieldNumbers(fs))
	}
	for _, f := range fs {
		switch f.num {
		case dataBody:
			if string(f.b) != "hi" {
				t.Errorf("body = %q, want hi", f.b)
			}
		case dataTimestamp:
			if f.v != 1000 {
				t.Errorf("timestamp = %d, want 1000", f.v)
			}
		default:
			t.Errorf("unexpected field %d", f.num)
		}
	}
}

func TestBuildDataMessageDefaultsTimestamp(t *testing.T) {
	content, err := testBuilder().Build(&message.DataMessage{})
	if err != nil {
		t.Fatal(err)
	}
	m, err := DecodeDataMessage(content)
	if err != nil {
		t.Fatal(err)
	}
	if m.Timestamp != 5000 {
		t.Errorf("timestamp = %d, want clock value 5000", m.Timestamp)
	}
	if m.Body != nil {
		t.Errorf("body = %q, want absent", *m.Body)
	}
}

func TestBuildEmptyBodyIsPresent(t *testing.T) {
	content, err := testBuilder().Build(&message.DataMessage{Body: proto.String(""), Timestamp: 1})
	if err != nil {
		t.Fatal(err)
	}
	m, err := DecodeDataMessage(content)
	if err != nil {
		t.Fatal(err)
	}
	if m.Body == nil || *m.Body != "" {
		t.Errorf("body = %v, want present and empty", m.Body)
	}
}

func TestBuildFlagsLastWins(t *testing.T) {
	tests := []struct {
		name string
		msg  *message.DataMessage
		want uint64
		set  bool
	}{
		{"none", &message.DataMessage{}, 0, false},
		{"end session", &message.DataMessage{EndSession: true}, flagEndSession, true},
		{"expiration over end session", &message.DataMessage{EndSession: true, ExpirationUpdate: true}, flagExpirationTimerUpdate, true},
		{"unlink wins", &message.DataMessage{ProfileKeyUpdate: true, DeviceUnlink: true}, flagDeviceUnlinkingRequest, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.msg.Timestamp = 1
			content, err := testBuilder().Build(tt.msg)
			if err != nil {
				t.Fatal(err)
			}
			var (
				got uint64
				set bool
			)
			for _, f := range mustFields(t, only(t, content, contentDataMessage)) {
				if f.num == dataFlags {
					got, set = f.v, true
				}
			}
			if set != tt.set || got != tt.want {
				t.Errorf("flags = %d (set %v), want %d (set %v)", got, set, tt.want, tt.set)
			}
		})
	}
}

func TestBuildGroupContext(t *testing.T) {
	tests := []struct {
		name     string
		group    *message.Group
		wantNums []protowire.Number
	}{
		{"deliver carries id and type only", &message.Group{ID: []byte("g"), Type: message.GroupDeliver, Name: proto.String("ignored")}, []protowire.Number{groupID, groupType}},
		{"quit", &message.Group{ID: []byte("g"), Type: message.GroupQuit}, []protowire.Number{groupID, groupType}},
		{"update", &message.Group{ID: []byte("g"), Type: message.GroupUpdate, Name: proto.String("n"), Members: []string{"a", "b"}, Admins: []string{"a"}}, []protowire.Number{groupID, groupType, groupName, groupMembers, groupMembers, groupAdmins}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := testBuilder().Build(&message.DataMessage{Timestamp: 1, Group: tt.group})
			if err != nil {
				t.Fatal(err)
			}
			var group []byte
			for _, f := range mustFields(t, only(t, content, contentDataMessage)) {
				if f.num == dataGroup {
					group = f.b
				}
			}
			fs := mustFields(t, group)
			if len(fs) != len(tt.wantNums) {
				t.Fatalf("got %d group fields, want %d", len(fs), len(tt.wantNums))
			}
			for i, f := range fs {
				if f.num != tt.wantNums[i] {
					t.Errorf("field %d = %d, want %d", i, f.num, tt.wantNums[i])
				}
			}
		})
	}
}

func TestBuildUnknownGroupTypePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown group type")
		}
	}()
	_, _ = testBuilder().Build(&message.DataMessage{Group: &message.Group{ID: []byte("g")}})
}

func TestBuildUnknownPhoneTypePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown phone type")
		}
	}()
	_, _ = testBuilder().Build(&message.DataMessage{SharedContacts: []message.SharedContact{{
		Phones: []message.Phone{{Value: "123"}},
	}}})
}

func TestBuildUnknownTypingIndicator(t *testing.T) {
	_, err := testBuilder().Build(&message.TypingMessage{Timestamp: 1})
	var encErr *delivery.EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("err = %v, want EncodingError", err)
	}
}

func TestBuildUnknownReceiptType(t *testing.T) {
	for _, typ := range []message.ReceiptType{message.ReceiptUnknown, message.ReceiptType(99)} {
		_, err := testBuilder().Build(&message.ReceiptMessage{Type: typ, Timestamps: []uint64{1}})
		var encErr *delivery.EncodingError
		if !errors.As(err, &encErr) {
			t.Errorf("type %d: err = %v, want EncodingError", typ, err)
		}
	}
}

func TestBuildRejectsStreams(t *testing.T) {
	_, err := testBuilder().Build(&message.DataMessage{
		Attachments: []message.Attachment{&message.AttachmentStream{ContentType: "image/png"}},
	})
	var encErr *delivery.EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("err = %v, want EncodingError", err)
	}
}

func TestBuildTyping(t *testing.T) {
	content, err := testBuilder().Build(&message.TypingMessage{Action: message.TypingStopped, Timestamp: 7, GroupID: []byte("g")})
	if err != nil {
		t.Fatal(err)
	}
	nums := fieldNumbers(mustFields(t, only(t, content, contentTypingMessage)))
	for _, n := range []protowire.Number{typingTimestamp, typingAction, typingGroupID} {
		if nums[n] != 1 {
			t.Errorf("typing field %d count = %d, want 1", n, nums[n])
		}
	}
}

func TestBuildReceipt(t *testing.T) {
	content, err := testBuilder().Build(&message.ReceiptMessage{Type: message.ReceiptRead, Timestamps: []uint64{1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	fs := mustFields(t, only(t, content, contentReceiptMessage))
	nums := fieldNumbers(fs)
	if nums[receiptTimestamp] != 3 {
		t.Errorf("timestamps = %d, want 3", nums[receiptTimestamp])
	}
	for _, f := range fs {
		if f.num == receiptType && f.v != receiptTypeRead {
			t.Errorf("type = %d, want READ", f.v)
		}
	}
}

func TestSyncVariantsSetOneFieldWithPadding(t *testing.T) {
	install := message.StickerPackInstall
	tests := []struct {
		name string
		msg  message.SyncMessage
		want protowire.Number
	}{
		{"contacts", &message.SyncContacts{Data: []byte("c"), Complete: true}, syncContacts},
		{"groups", &message.SyncGroups{Data: []byte("g")}, syncGroups},
		{"open groups", &message.SyncOpenGroups{Groups: []message.PublicChat{{Server: "https://chat.example", Channel: 1}, {Server: "https://other.example", Channel: 2}}}, syncOpenGroups},
		{"sent", &message.SyncSent{Destination: proto.String("05ab"), Timestamp: 9, Message: &message.DataMessage{Body: proto.String("x"), Timestamp: 9}}, syncSent},
		{"read", &message.SyncRead{Reads: []message.ReadMessage{{Sender: "05ab", Timestamp: 1}}}, syncRead},
		{"blocked", &message.SyncBlocked{Numbers: []string{"05ab"}, GroupIDs: [][]byte{[]byte("g")}}, syncBlocked},
		{"configuration", &message.SyncConfiguration{ReadReceipts: proto.Bool(false)}, syncConfiguration},
		{"empty configuration", &message.SyncConfiguration{}, syncConfiguration},
		{"sticker packs", &message.SyncStickerPackOperations{Operations: []message.StickerPackOperation{{PackID: []byte("p"), Type: &install}}}, syncStickerPackOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := testBuilder().Build(tt.msg)
			if err != nil {
				t.Fatal(err)
			}
			fs := mustFields(t, only(t, content, contentSyncMessage))

			var (
				padding []byte
				others  = make(map[protowire.Number]bool)
			)
			for _, f := range fs {
				if f.num == syncPadding {
					padding = f.b
					continue
				}
				others[f.num] = true
			}
			if len(padding) != DefaultSyncPaddingSize {
				t.Errorf("padding length = %d, want %d", len(padding), DefaultSyncPaddingSize)
			}
			if len(others) != 1 || !others[tt.want] {
				t.Errorf("sync fields = %v, want only %d", others, tt.want)
			}
		})
	}
}

func TestSyncPaddingWrittenWhenEmpty(t *testing.T) {
	content, err := testBuilder(WithSyncPaddingSize(0)).Build(&message.SyncGroups{Data: []byte("g")})
	if err != nil {
		t.Fatal(err)
	}
	nums := fieldNumbers(mustFields(t, only(t, content, contentSyncMessage)))
	if nums[syncPadding] != 1 {
		t.Errorf("padding count = %d, want 1 even when empty", nums[syncPadding])
	}
}

func TestSyncVerifiedIsNotBuilt(t *testing.T) {
	_, err := testBuilder().Build(&message.SyncVerified{Destination: "05ab"})
	var encErr *delivery.EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("err = %v, want EncodingError", err)
	}
}

func TestBuildSentTranscript(t *testing.T) {
	b := testBuilder()
	content, err := b.Build(&message.DataMessage{Body: proto.String("hi"), Timestamp: 42, ExpiresInSeconds: 30})
	if err != nil {
		t.Fatal(err)
	}
	results := []delivery.Result{
		delivery.Succeeded(message.NewRecipient("05aa"), true, true),
		delivery.NetworkFailed(message.NewRecipient("05bb")),
		delivery.Succeeded(message.NewRecipient("05cc"), false, true),
	}

	transcript, err := b.BuildSentTranscript(content, nil, 42, results)
	if err != nil {
		t.Fatal(err)
	}

	var sent []byte
	for _, f := range mustFields(t, only(t, transcript, contentSyncMessage)) {
		if f.num == syncSent {
			sent = f.b
		}
	}
	if sent == nil {
		t.Fatal("no sent field")
	}

	var (
		statuses  int
		expStart  uint64
		embedded  []byte
		destFound bool
	)
	for _, f := range mustFields(t, sent) {
		switch f.num {
		case sentUnidentifiedStatus:
			statuses++
		case sentExpirationStartTimestamp:
			expStart = f.v
		case sentMessage:
			embedded = f.b
		case sentDestination:
			destFound = true
		}
	}
	if statuses != 2 {
		t.Errorf("unidentified statuses = %d, want 2 (successes only)", statuses)
	}
	if expStart != 5000 {
		t.Errorf("expiration start = %d, want 5000", expStart)
	}
	if destFound {
		t.Error("destination set for a multi-recipient transcript")
	}
	want, _ := rawDataMessage(content)
	if !bytes.Equal(embedded, want) {
		t.Error("embedded data message differs from the original content")
	}
}

func TestDecodeDataMessageForChannel(t *testing.T) {
	size := uint32(10)
	content, err := testBuilder().Build(&message.DataMessage{
		Body:      proto.String("hello"),
		Timestamp: 77,
		Quote:     &message.Quote{ID: 12, Author: "05aa", Text: "earlier"},
		Attachments: []message.Attachment{&message.AttachmentPointer{
			ID: 3, ContentType: "image/jpeg", Key: []byte("k"), Size: &size, URL: "https://files/3", Caption: proto.String("cap"), Width: 4, Height: 5,
		}},
		Previews: []message.Preview{{URL: "https://x", Title: "X", Image: &message.AttachmentPointer{ID: 9, ContentType: "image/png", URL: "https://files/9"}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	m, err := DecodeDataMessage(content)
	if err != nil {
		t.Fatal(err)
	}
	if m.Body == nil || *m.Body != "hello" || m.Timestamp != 77 {
		t.Errorf("body/timestamp = %v/%d", m.Body, m.Timestamp)
	}
	if m.Quote == nil || m.Quote.ID != 12 || m.Quote.Author != "05aa" {
		t.Errorf("quote = %+v", m.Quote)
	}
	if len(m.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(m.Attachments))
	}
	p := m.Attachments[0].(*message.AttachmentPointer)
	if p.Size == nil || *p.Size != 10 || p.Caption == nil || *p.Caption != "cap" || p.Width != 4 {
		t.Errorf("pointer = %+v", p)
	}
	if len(m.Previews) != 1 || m.Previews[0].Image == nil {
		t.Errorf("previews = %+v", m.Previews)
	}
}

func TestDecodeWithoutDataMessage(t *testing.T) {
	content, err := testBuilder().Build(&message.TypingMessage{Action: message.TypingStarted})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeDataMessage(content); !errors.Is(err, ErrNoDataMessage) {
		t.Errorf("err = %v, want ErrNoDataMessage", err)
	}
}

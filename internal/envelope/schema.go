package envelope

import "google.golang.org/protobuf/encoding/protowire"

// Field numbers of the SignalService content schema.
const (
	contentDataMessage    protowire.Number = 1
	contentSyncMessage    protowire.Number = 2
	contentReceiptMessage protowire.Number = 5
	contentTypingMessage  protowire.Number = 6
)

const (
	dataBody        protowire.Number = 1
	dataAttachments protowire.Number = 2
	dataGroup       protowire.Number = 3
	dataFlags       protowire.Number = 4
	dataExpireTimer protowire.Number = 5
	dataProfileKey  protowire.Number = 6
	dataTimestamp   protowire.Number = 7
	dataQuote       protowire.Number = 8
	dataContact     protowire.Number = 9
	dataPreview     protowire.Number = 10
	dataSticker     protowire.Number = 11
	dataProfile     protowire.Number = 101
	dataSyncTarget  protowire.Number = 105
)

// DataMessage flag values. Only one flag is ever set; later ones win.
const (
	flagEndSession             = 1
	flagExpirationTimerUpdate  = 2
	flagProfileKeyUpdate       = 4
	flagDeviceUnlinkingRequest = 128
)

const (
	pointerID          protowire.Number = 1
	pointerContentType protowire.Number = 2
	pointerKey         protowire.Number = 3
	pointerSize        protowire.Number = 4
	pointerThumbnail   protowire.Number = 5
	pointerDigest      protowire.Number = 6
	pointerFileName    protowire.Number = 7
	pointerFlags       protowire.Number = 8
	pointerWidth       protowire.Number = 9
	pointerHeight      protowire.Number = 10
	pointerCaption     protowire.Number = 11
	pointerURL         protowire.Number = 101

	pointerFlagVoiceMessage = 1
)

const (
	groupID      protowire.Number = 1
	groupType    protowire.Number = 2
	groupName    protowire.Number = 3
	groupMembers protowire.Number = 4
	groupAvatar  protowire.Number = 5
	groupAdmins  protowire.Number = 6

	groupTypeUpdate      = 1
	groupTypeDeliver     = 2
	groupTypeQuit        = 3
	groupTypeRequestInfo = 4
)

const (
	quoteID          protowire.Number = 1
	quoteAuthor      protowire.Number = 2
	quoteText        protowire.Number = 3
	quoteAttachments protowire.Number = 4

	quotedContentType protowire.Number = 1
	quotedFileName    protowire.Number = 2
	quotedThumbnail   protowire.Number = 3
)

const (
	contactName         protowire.Number = 1
	contactNumber       protowire.Number = 3
	contactEmail        protowire.Number = 4
	contactAddress      protowire.Number = 5
	contactAvatar       protowire.Number = 6
	contactOrganization protowire.Number = 7

	nameGiven   protowire.Number = 1
	nameFamily  protowire.Number = 2
	namePrefix  protowire.Number = 3
	nameSuffix  protowire.Number = 4
	nameMiddle  protowire.Number = 5
	nameDisplay protowire.Number = 6

	// Phone and Email share the same layout.
	valueValue protowire.Number = 1
	valueType  protowire.Number = 2
	valueLabel protowire.Number = 3

	addressType         protowire.Number = 1
	addressLabel        protowire.Number = 2
	addressStreet       protowire.Number = 3
	addressPobox        protowire.Number = 4
	addressNeighborhood protowire.Number = 5
	addressCity         protowire.Number = 6
	addressRegion       protowire.Number = 7
	addressPostcode     protowire.Number = 8
	addressCountry      protowire.Number = 9

	avatarAvatar    protowire.Number = 1
	avatarIsProfile protowire.Number = 2
)

const (
	previewURL   protowire.Number = 1
	previewTitle protowire.Number = 2
	previewImage protowire.Number = 3

	stickerPackID  protowire.Number = 1
	stickerPackKey protowire.Number = 2
	stickerID      protowire.Number = 3
	stickerData    protowire.Number = 4

	profileDisplayName protowire.Number = 1
	profilePicture     protowire.Number = 2
)

const (
	typingTimestamp protowire.Number = 1
	typingAction    protowire.Number = 2
	typingGroupID   protowire.Number = 3

	typingActionStarted = 0
	typingActionStopped = 1

	receiptType      protowire.Number = 1
	receiptTimestamp protowire.Number = 2

	receiptTypeDelivery = 0
	receiptTypeRead     = 1
)

const (
	syncSent                 protowire.Number = 1
	syncContacts             protowire.Number = 2
	syncGroups               protowire.Number = 3
	syncRead                 protowire.Number = 5
	syncBlocked              protowire.Number = 6
	syncPadding              protowire.Number = 8
	syncConfiguration        protowire.Number = 9
	syncStickerPackOperation protowire.Number = 10
	syncOpenGroups           protowire.Number = 100

	sentDestination              protowire.Number = 1
	sentTimestamp                protowire.Number = 2
	sentMessage                  protowire.Number = 3
	sentExpirationStartTimestamp protowire.Number = 4
	sentUnidentifiedStatus       protowire.Number = 5

	statusDestination  protowire.Number = 1
	statusUnidentified protowire.Number = 2

	blobComplete protowire.Number = 2
	blobData     protowire.Number = 101

	readSender    protowire.Number = 1
	readTimestamp protowire.Number = 2

	blockedNumbers  protowire.Number = 1
	blockedGroupIDs protowire.Number = 2

	configReadReceipts                   protowire.Number = 1
	configUnidentifiedDeliveryIndicators protowire.Number = 2
	configTypingIndicators               protowire.Number = 3
	configLinkPreviews                   protowire.Number = 4

	stickerOpPackID  protowire.Number = 1
	stickerOpPackKey protowire.Number = 2
	stickerOpType    protowire.Number = 3

	stickerOpInstall = 0
	stickerOpRemove  = 1

	openGroupURL     protowire.Number = 1
	openGroupChannel protowire.Number = 2
)

// Transport envelope and storage-node request wrapper.
const (
	envelopeType         protowire.Number = 1
	envelopeSource       protowire.Number = 2
	envelopeTimestamp    protowire.Number = 5
	envelopeSourceDevice protowire.Number = 7
	envelopeContent      protowire.Number = 8

	wsMessageType    protowire.Number = 1
	wsMessageRequest protowire.Number = 2
	wsRequestVerb    protowire.Number = 1
	wsRequestPath    protowire.Number = 2
	wsRequestBody    protowire.Number = 3

	wsTypeRequest = 1
)

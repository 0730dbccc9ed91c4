package main

// dictItem is one dictionary attribute of an account file. Types follow the
// server's dictionary conventions: C character, D date, I integer, F float,
// B boolean.
type dictItem struct {
	Name        string
	Type        string
	Description string
}

// fileDef is one account file and its dictionary.
type fileDef struct {
	Name  string
	Items []dictItem
}

// accountFiles lists every file the archive account uses, in creation order.
var accountFiles = []fileDef{
	{
		Name: "USERS",
		Items: []dictItem{
			{"ID", "C", "User ID (UUID)"},
			{"USERNAME", "C", "Username"},
			{"PASSWORD", "C", "Encrypted password"},
			{"EMAIL", "C", "User email address"},
			{"FIRST_NAME", "C", "First name"},
			{"LAST_NAME", "C", "Last name"},
			{"CREATED_AT", "D", "Creation date"},
			{"LAST_LOGIN", "D", "Last login date"},
			{"ROLE", "C", "User role"},
			{"STATUS", "C", "Account status"},
		},
	},
	{
		Name: "EMAILS",
		Items: []dictItem{
			{"ID", "C", "Email ID (UUID)"},
			{"ACCOUNT_ID", "C", "Email account ID"},
			{"FROM_ADDRESS", "C", "Sender email address"},
			{"TO_ADDRESSES", "C", "Recipient email addresses (multi-value)"},
			{"CC_ADDRESSES", "C", "CC email addresses (multi-value)"},
			{"BCC_ADDRESSES", "C", "BCC email addresses (multi-value)"},
			{"SUBJECT", "C", "Email subject"},
			{"DATE_SENT", "D", "Date sent"},
			{"DATE_RECEIVED", "D", "Date received"},
			{"BODY_ID", "C", "Body ID reference"},
			{"HTML_ID", "C", "HTML ID reference"},
			{"THREAD_ID", "C", "Thread ID reference"},
			{"ATTACHMENT_IDS", "C", "Attachment IDs (multi-value)"},
			{"CATEGORY_IDS", "C", "Category IDs (multi-value)"},
			{"DISCLAIMER_IDS", "C", "Disclaimer IDs (multi-value)"},
			{"PRIORITY", "I", "Email priority"},
			{"IS_READ", "B", "Read status"},
			{"IS_FLAGGED", "B", "Flagged status"},
			{"IS_DELETED", "B", "Deleted status"},
			{"IS_SPAM", "B", "Spam status"},
			{"SPAM_SCORE", "F", "Spam score"},
			{"IS_CONFIDENTIAL", "B", "Confidential status"},
			{"RETENTION_POLICY", "C", "Retention policy"},
			{"MESSAGE_ID", "C", "Original message ID"},
			{"IN_REPLY_TO", "C", "In-reply-to header"},
			{"REFERENCES", "C", "References header"},
		},
	},
	{
		Name: "THREADS",
		Items: []dictItem{
			{"ID", "C", "Thread ID (UUID)"},
			{"SUBJECT", "C", "Thread subject"},
			{"EMAIL_IDS", "C", "Email IDs in thread (multi-value)"},
			{"DATE_STARTED", "D", "Thread start date"},
			{"LAST_DATE", "D", "Last email date"},
			{"PARTICIPANT_IDS", "C", "Participant IDs (multi-value)"},
			{"CATEGORY_IDS", "C", "Category IDs (multi-value)"},
			{"PRIORITY", "I", "Thread priority"},
			{"IS_COMPLETE", "B", "Thread completion status"},
		},
	},
	{
		Name: "ATTACHMENTS",
		Items: []dictItem{
			{"ID", "C", "Attachment ID (UUID)"},
			{"FILENAME", "C", "Original filename"},
			{"CONTENT_TYPE", "C", "MIME content type"},
			{"SIZE", "I", "File size in bytes"},
			{"HASH", "C", "File hash for deduplication"},
			{"STORAGE_PATH", "C", "Path to stored file"},
			{"EMAIL_IDS", "C", "Email IDs using this attachment (multi-value)"},
			{"DATE_ADDED", "D", "Date attachment was added"},
		},
	},
	{
		Name: "HTML_OBJECTS",
		Items: []dictItem{
			{"ID", "C", "HTML object ID (UUID)"},
			{"FILENAME", "C", "Original filename"},
			{"CONTENT_TYPE", "C", "MIME content type"},
			{"SIZE", "I", "File size in bytes"},
			{"HASH", "C", "File hash for deduplication"},
			{"STORAGE_PATH", "C", "Path to stored file"},
			{"EMAIL_IDS", "C", "Email IDs using this object (multi-value)"},
			{"DATE_ADDED", "D", "Date object was added"},
		},
	},
	{
		Name: "BODIES",
		Items: []dictItem{
			{"ID", "C", "Body ID (UUID)"},
			{"CONTENT", "C", "Text content"},
			{"DISCLAIMER_IDS", "C", "Disclaimer IDs (multi-value)"},
			{"LANGUAGE", "C", "Detected language"},
			{"WORD_COUNT", "I", "Word count"},
			{"HASH", "C", "Content hash for deduplication"},
		},
	},
	{
		Name: "CATEGORIES",
		Items: []dictItem{
			{"ID", "C", "Category ID (UUID)"},
			{"NAME", "C", "Category name"},
			{"DESCRIPTION", "C", "Category description"},
			{"PARENT_ID", "C", "Parent category ID"},
			{"CHILD_IDS", "C", "Child category IDs (multi-value)"},
			{"COLOR", "C", "Display color"},
			{"USER_ID", "C", "Owner user ID"},
			{"IS_SYSTEM", "B", "System category flag"},
		},
	},
	{
		Name: "RULES",
		Items: []dictItem{
			{"ID", "C", "Rule ID (UUID)"},
			{"NAME", "C", "Rule name"},
			{"DESCRIPTION", "C", "Rule description"},
			{"TYPE", "C", "Rule type"},
			{"TARGETS", "C", "Target fields (multi-value)"},
			{"PARAMETERS", "C", "Rule parameters (multi-value)"},
			{"RESULTS", "C", "Rule results (multi-value)"},
			{"USER_ID", "C", "Owner user ID"},
			{"IS_ACTIVE", "B", "Active status"},
			{"PRIORITY", "I", "Rule priority"},
		},
	},
	{
		Name: "DOMAINS",
		Items: []dictItem{
			{"ID", "C", "Domain ID (UUID)"},
			{"NAME", "C", "Domain name"},
			{"CATEGORY_IDS", "C", "Category IDs (multi-value)"},
			{"PRIORITY", "I", "Domain priority"},
			{"RETENTION_POLICY", "C", "Retention policy"},
			{"RULE_IDS", "C", "Rule IDs (multi-value)"},
		},
	},
	{
		Name: "CONTACTS",
		Items: []dictItem{
			{"ID", "C", "Contact ID (UUID)"},
			{"EMAIL", "C", "Email address"},
			{"FIRST_NAME", "C", "First name"},
			{"LAST_NAME", "C", "Last name"},
			{"CATEGORY_IDS", "C", "Category IDs (multi-value)"},
			{"PRIORITY", "I", "Contact priority"},
			{"RETENTION_POLICY", "C", "Retention policy"},
			{"USER_ID", "C", "Owner user ID"},
			{"ORGANIZATION", "C", "Organization"},
			{"PHONE", "C", "Phone number"},
			{"NOTES", "C", "Notes"},
		},
	},
	{
		Name: "DISCLAIMERS",
		Items: []dictItem{
			{"ID", "C", "Disclaimer ID (UUID)"},
			{"TEXT", "C", "Disclaimer text"},
			{"HASH", "C", "Text hash for deduplication"},
			{"DOMAIN", "C", "Associated domain"},
			{"DATE_ADDED", "D", "Date disclaimer was added"},
		},
	},
	{
		Name: "KEYWORDS",
		Items: []dictItem{
			{"ID", "C", "Keyword ID (UUID)"},
			{"KEYWORD", "C", "Keyword text"},
			{"EMAIL_IDS", "C", "Email IDs containing this keyword (multi-value)"},
			{"FREQUENCY", "I", "Keyword frequency"},
		},
	},
}

// program is a BASIC program installed on the account. Register marks
// programs exposed through the web service gateway.
type program struct {
	Name     string
	Source   string
	Register bool
}

var programs = []program{
	{Name: "EMAIL.QUERY", Source: emailQuerySource},
	{Name: "EMAIL.PROCESS", Source: emailProcessSource},
	{Name: "EMAIL.WS", Source: emailWSSource, Register: true},
}

// emailQuerySource backs the repository's phantom search path: it receives
// bare criteria clauses and prints one matching email ID per line.
const emailQuerySource = `
PROGRAM EMAIL.QUERY
* Query emails by criteria
* Input: criteria clauses
* Output: matching email IDs, one per line

$INCLUDE KEYS.H
$INCLUDE SYSCOM KEYS.H

QUERY.STR = SENTENCE(1)
IF QUERY.STR = '' THEN
  PRINT 'ERROR: No query string provided'
  STOP
END

EXECUTE 'SELECT EMAILS WITH ' : QUERY.STR : ' TO 11'
LIST.FILE = '11'

OPEN LIST.FILE TO F.LIST ELSE
  PRINT 'ERROR: Unable to open select list'
  STOP
END

LOOP
  READNEXT ID FROM F.LIST ELSE EXIT
  PRINT ID
REPEAT

CLOSE F.LIST
END
`

const emailProcessSource = `
PROGRAM EMAIL.PROCESS
* Process one email record
* Input: email ID

$INCLUDE KEYS.H
$INCLUDE SYSCOM KEYS.H

EMAIL.ID = SENTENCE(1)
IF EMAIL.ID = '' THEN
  PRINT 'ERROR: No email ID provided'
  STOP
END

OPEN 'EMAILS' TO F.EMAILS ELSE
  PRINT 'ERROR: Unable to open EMAILS file'
  STOP
END

READ EMAIL.REC FROM F.EMAILS, EMAIL.ID ELSE
  PRINT 'ERROR: Email not found'
  STOP
END

PRINT 'Processing email ' : EMAIL.ID

WRITE EMAIL.REC TO F.EMAILS, EMAIL.ID

CLOSE F.EMAILS
PRINT 'OK'
END
`

// emailWSSource is the server side of the HTTP/JSON bridge: the action names
// and response keys mirror what the service transport sends and expects.
const emailWSSource = `
PROGRAM EMAIL.WS
* Web service bridge for the archive access layer
* Actions: execute, read, write, delete, select

$INCLUDE KEYS.H
$INCLUDE SYSCOM KEYS.H
$INCLUDE SYSCOM WS.H

REQUEST = WS$REQUEST
ACTION = REQUEST<'action'>

BEGIN CASE
  CASE ACTION = 'execute'
    EXECUTE REQUEST<'command'> CAPTURING OUTPUT
    WS$RESPONSE<'result'> = OUTPUT

  CASE ACTION = 'read'
    OPEN REQUEST<'file'> TO F.FILE ELSE
      WS$RESPONSE<'record'> = ''
      RETURN
    END
    READ REC FROM F.FILE, REQUEST<'id'> ELSE REC = ''
    WS$RESPONSE<'record'> = REC
    CLOSE F.FILE

  CASE ACTION = 'write'
    OPEN REQUEST<'file'> TO F.FILE ELSE
      WS$RESPONSE<'success'> = 0
      RETURN
    END
    WRITE REQUEST<'record'> TO F.FILE, REQUEST<'id'>
    WS$RESPONSE<'success'> = 1
    CLOSE F.FILE

  CASE ACTION = 'delete'
    OPEN REQUEST<'file'> TO F.FILE ELSE
      WS$RESPONSE<'success'> = 0
      RETURN
    END
    DELETE F.FILE, REQUEST<'id'>
    WS$RESPONSE<'success'> = 1
    CLOSE F.FILE

  CASE ACTION = 'select'
    EXECUTE REQUEST<'query'> : ' TO 11'
    OPEN '11' TO F.LIST ELSE
      WS$RESPONSE<'ids'> = ''
      RETURN
    END
    IDS = ''
    LOOP
      READNEXT ID FROM F.LIST ELSE EXIT
      IDS<-1> = ID
    REPEAT
    CLOSE F.LIST
    WS$RESPONSE<'ids'> = IDS

  CASE 1
    WS$RESPONSE<'error'> = 'Unknown action: ' : ACTION
END CASE

END
`
